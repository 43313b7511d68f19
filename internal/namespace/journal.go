package namespace

import (
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/fedfs/internal/shared/id"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// RenameStep is how far a composed rename got
type RenameStep int

const (
	// StepStarted: nothing has been copied; the source is the only copy
	StepStarted RenameStep = iota
	// StepRead: source content was read; destination not yet written
	StepRead
	// StepWritten: both source and destination exist
	StepWritten
)

func (s RenameStep) String() string {
	switch s {
	case StepStarted:
		return "started"
	case StepRead:
		return "read"
	case StepWritten:
		return "written"
	default:
		return "unknown"
	}
}

// RenameRecord is one journaled rename
type RenameRecord struct {
	ID        id.JournalID `json:"id"`
	OldPath   string       `json:"old_path"`
	NewPath   string       `json:"new_path"`
	Step      RenameStep   `json:"step"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RenameJournal records the steps of composed renames until they complete.
type RenameJournal interface {
	Begin(oldPath, newPath string) (RenameRecord, error)
	Advance(jid id.JournalID, step RenameStep) error
	Complete(jid id.JournalID) error
	Get(jid id.JournalID) (RenameRecord, error)
	Pending() ([]RenameRecord, error)
}

// MemoryJournal is a process-local RenameJournal
type MemoryJournal struct {
	mu      sync.Mutex
	records map[id.JournalID]RenameRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{records: make(map[id.JournalID]RenameRecord)}
}

func (j *MemoryJournal) Begin(oldPath, newPath string) (RenameRecord, error) {
	now := time.Now()
	rec := RenameRecord{
		ID:        id.NewJournalID(),
		OldPath:   oldPath,
		NewPath:   newPath,
		Step:      StepStarted,
		StartedAt: now,
		UpdatedAt: now,
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[rec.ID] = rec
	return rec, nil
}

func (j *MemoryJournal) Advance(jid id.JournalID, step RenameStep) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.records[jid]
	if !ok {
		return types.Errorf(types.KindNotFound, "rename_journal", "", "no journal entry %s", jid)
	}
	rec.Step = step
	rec.UpdatedAt = time.Now()
	j.records[jid] = rec
	return nil
}

func (j *MemoryJournal) Complete(jid id.JournalID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.records, jid)
	return nil
}

func (j *MemoryJournal) Get(jid id.JournalID) (RenameRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.records[jid]
	if !ok {
		return RenameRecord{}, types.Errorf(types.KindNotFound, "rename_journal", "", "no journal entry %s", jid)
	}
	return rec, nil
}

// Pending returns unfinished renames, oldest first.
func (j *MemoryJournal) Pending() ([]RenameRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]RenameRecord, 0, len(j.records))
	for _, rec := range j.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.Before(out[b].StartedAt) })
	return out, nil
}
