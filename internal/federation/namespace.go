package federation

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fedfs/internal/mountstore"
	"github.com/GriffinCanCode/fedfs/internal/shared/id"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/storage/factory"
	"github.com/GriffinCanCode/fedfs/internal/storage/memory"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Publisher receives invalidation events
type Publisher interface {
	Publish(event types.Event)
}

// Options configures a Namespace
type Options struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	// Store holds saved mounts; defaults to an in-memory store.
	Store mountstore.Store
	// Open connects a saved mount's backend; defaults to factory.Open.
	Open factory.Opener
	// Root serves paths outside every mount; defaults to a memory backend.
	Root   storage.Backend
	Events Publisher
}

type activeMount struct {
	saved      types.SavedMount
	backend    storage.Backend
	cache      *metaCache
	activation id.ActivationID
	loadedAt   time.Time

	// held for the duration of a sync
	syncing sync.Mutex
}

// Point implements paths.Pointed
func (m *activeMount) Point() string { return m.saved.MountPoint }

// Namespace federates a root backend and any number of mounted backends
// under one path space. Paths route to the mount with the longest matching
// mount point.
type Namespace struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
	store   mountstore.Store
	open    factory.Opener
	root    storage.Backend
	events  Publisher

	mu     sync.RWMutex
	mounts map[string]*activeMount

	// serializes load and remove so activation stays idempotent
	loadMu sync.Mutex
}

// New creates a namespace with no active mounts
func New(opts Options) *Namespace {
	n := &Namespace{
		log:     opts.Logger,
		metrics: opts.Metrics,
		store:   opts.Store,
		open:    opts.Open,
		root:    opts.Root,
		events:  opts.Events,
		mounts:  make(map[string]*activeMount),
	}
	if n.log == nil {
		n.log = logging.NewNop()
	}
	if n.store == nil {
		n.store = mountstore.NewMemory()
	}
	if n.open == nil {
		n.open = factory.Open
	}
	if n.root == nil {
		n.root = memory.New(storage.MemoryConfig{})
	}
	return n
}

// route is the resolution of a namespace path to its owning backend
type route struct {
	mount   *activeMount // nil for the root backend
	backend storage.Backend
	base    string // namespace path of the backend root
	rel     string // backend-relative path
}

func (r route) readOnly() bool {
	return r.mount != nil && r.mount.saved.ReadOnly
}

// nsPath maps a backend-relative path back into the namespace
func (r route) nsPath(rel string) string {
	return paths.Join(r.base, rel)
}

// activeList returns the mounts sorted by mount point
func (n *Namespace) activeList() []*activeMount {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*activeMount, 0, len(n.mounts))
	for _, m := range n.mounts {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Point() < out[j].Point() })
	return out
}

func (n *Namespace) resolve(p string) route {
	active := n.activeList()
	if m := paths.ResolveMount(p, active); m != nil {
		rel, _ := paths.Rel(p, (*m).Point())
		return route{mount: *m, backend: (*m).backend, base: (*m).Point(), rel: storage.Clean(rel)}
	}
	return route{backend: n.root, base: paths.Root, rel: p}
}

// mountsBelow returns the mounts strictly inside dir
func (n *Namespace) mountsBelow(dir string) []*activeMount {
	var out []*activeMount
	for _, m := range n.activeList() {
		if m.Point() != dir && paths.IsWithin(m.Point(), dir) {
			out = append(out, m)
		}
	}
	return out
}

// shadowed reports whether p belongs to a mount deeper than base
func (n *Namespace) shadowed(p, base string) bool {
	for _, m := range n.mountsBelow(base) {
		if paths.IsWithin(p, m.Point()) {
			return true
		}
	}
	return false
}

func (n *Namespace) publish(op, p, mountPoint string) {
	if n.events == nil {
		return
	}
	n.events.Publish(types.Event{Op: op, Path: p, MountPoint: mountPoint, Time: time.Now().UTC()})
}

func (n *Namespace) updateGauge() {
	if n.metrics == nil {
		return
	}
	n.mu.RLock()
	count := len(n.mounts)
	n.mu.RUnlock()
	n.metrics.SetMountsActive(count)
}

// Close releases every mounted backend and the root
func (n *Namespace) Close() error {
	n.mu.Lock()
	mounts := n.mounts
	n.mounts = make(map[string]*activeMount)
	n.mu.Unlock()

	for mp, m := range mounts {
		if err := m.backend.Close(); err != nil {
			n.log.Warn("close backend", zap.String("mount_point", mp), zap.Error(err))
		}
	}
	if err := n.store.Close(); err != nil {
		n.log.Warn("close mount store", zap.Error(err))
	}
	return n.root.Close()
}
