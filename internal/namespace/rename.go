package namespace

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/id"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Rename moves oldPath to newPath.
//
// With ServerMove enabled the server's rename method is tried first; a server
// that cannot move between the two paths answers Unsupported and the rename is
// composed instead. A composed rename is read, then write, then delete, and is
// not atomic: a reader may see the source vanish before or after the
// destination appears, and a failure between steps can leave both copies.
// Each step is journaled so an interrupted rename can be found with
// PendingRenames and finished or reverted.
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) error {
	src, err := requireNonRoot(methodRename, oldPath)
	if err != nil {
		return err
	}
	dst, err := requireNonRoot(methodRename, newPath)
	if err != nil {
		return err
	}
	if src == dst {
		return types.NewError(types.KindValidation, methodRename, src, "source and destination are the same")
	}

	if c.serverMove {
		err := c.call(ctx, methodRename, src, rpc.Params{"old_path": src, "new_path": dst}, nil)
		if !types.IsKind(err, types.KindUnsupported) {
			return err
		}
		c.log.Debug("server move unsupported, composing rename", zap.String("old_path", src), zap.String("new_path", dst))
	}

	rec, err := c.journal.Begin(src, dst)
	if err != nil {
		return types.Wrap(types.KindBackend, methodRename, src, err)
	}
	return c.composeRename(ctx, rec)
}

// composeRename runs the remaining steps of rec.
func (c *Client) composeRename(ctx context.Context, rec RenameRecord) error {
	if rec.Step < StepWritten {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := c.Read(ctx, rec.OldPath)
		if err != nil {
			c.abandon(rec.ID)
			return err
		}
		c.advance(rec.ID, StepRead)

		if err := ctx.Err(); err != nil {
			c.abandon(rec.ID)
			return err
		}
		if err := c.Write(ctx, rec.NewPath, data); err != nil {
			c.abandon(rec.ID)
			return err
		}
		c.advance(rec.ID, StepWritten)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Delete(ctx, rec.OldPath); err != nil {
		c.log.Warn("rename left source in place",
			zap.String("journal_id", rec.ID.String()),
			zap.String("old_path", rec.OldPath),
			zap.String("new_path", rec.NewPath),
			zap.Error(err))
		return err
	}
	return c.journal.Complete(rec.ID)
}

// PendingRenames lists composed renames that did not finish.
func (c *Client) PendingRenames() ([]RenameRecord, error) {
	return c.journal.Pending()
}

// ResumeRename finishes an interrupted rename from its last recorded step.
func (c *Client) ResumeRename(ctx context.Context, jid id.JournalID) error {
	rec, err := c.journal.Get(jid)
	if err != nil {
		return err
	}
	return c.composeRename(ctx, rec)
}

// RollbackRename reverts an interrupted rename: a written destination is
// deleted and the source is left as the only copy.
func (c *Client) RollbackRename(ctx context.Context, jid id.JournalID) error {
	rec, err := c.journal.Get(jid)
	if err != nil {
		return err
	}
	if rec.Step == StepWritten {
		if err := c.Delete(ctx, rec.NewPath); err != nil && !types.IsKind(err, types.KindNotFound) {
			return err
		}
	}
	return c.journal.Complete(jid)
}

// abandon drops a journal entry for a rename that failed before the
// destination was written; the source is still the only copy.
func (c *Client) abandon(jid id.JournalID) {
	if err := c.journal.Complete(jid); err != nil {
		c.log.Warn("failed to clear rename journal entry", zap.String("journal_id", jid.String()), zap.Error(err))
	}
}

func (c *Client) advance(jid id.JournalID, step RenameStep) {
	if err := c.journal.Advance(jid, step); err != nil {
		c.log.Warn("failed to journal rename step",
			zap.String("journal_id", jid.String()),
			zap.String("step", step.String()),
			zap.Error(err))
	}
}
