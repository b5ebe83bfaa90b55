// FILE: lixenwraith/crossprefs/lifecycle.go
package crossprefs

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// GateState is the state of the run-once initialization gate
type GateState int32

const (
	// GateWaiting means resolution has not run yet
	GateWaiting GateState = iota
	// GateDone is terminal; resolution ran exactly once
	GateDone
)

func (s GateState) String() string {
	if s == GateDone {
		return "done"
	}
	return "waiting"
}

// Initializer runs default preference initialization in two phases:
// InstallEarlyDefaults during plugin start, ResolveEffectiveDefaults once all
// default sources have been merged by the host. The second phase runs at most
// once, whether called directly or triggered by the tree's Added event.
type Initializer struct {
	tree       *Tree
	namespaces Namespaces
	registry   *Registry
	resolver   *Resolver
	logger     zerolog.Logger

	once   sync.Once
	state  atomic.Int32
	result Resolution

	gateMu sync.Mutex
	gateID int64 // 0 when no gate is registered
	early  bool
}

// NewInitializer wires a resolver over the tree namespaces.
func NewInitializer(tree *Tree, namespaces Namespaces, registry *Registry, probe Probe, logger zerolog.Logger) (*Initializer, error) {
	if tree == nil {
		return nil, ErrNilTree
	}
	if err := namespaces.Validate(); err != nil {
		return nil, err
	}

	resolver, err := NewResolver(namespaces.Layers(tree), registry, probe, WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &Initializer{
		tree:       tree,
		namespaces: namespaces,
		registry:   registry,
		resolver:   resolver,
		logger:     logger,
	}, nil
}

// InstallEarlyDefaults records the default toolchain name in the current store
// and installs the gate that triggers late resolution. Values set here may be
// overridden by defaults merged later. Repeated calls do nothing.
func (i *Initializer) InstallEarlyDefaults() {
	i.gateMu.Lock()
	defer i.gateMu.Unlock()

	if i.early {
		return
	}
	i.early = true

	i.logger.Debug().Str("namespace", i.namespaces.Current).Msg("installing early defaults")
	i.tree.Store(i.namespaces.Current).Put(KeyToolchainName, i.registry.Default().Name)

	if i.State() == GateWaiting {
		i.gateID = i.tree.AddNodeChangeListener(&lateInitializer{initializer: i})
	}
}

// ResolveEffectiveDefaults runs the full resolution once and returns its report.
// Later calls return the first report without touching the stores.
func (i *Initializer) ResolveEffectiveDefaults() Resolution {
	i.once.Do(func() {
		i.logger.Debug().Msg("resolving effective defaults")
		i.result = i.resolver.Resolve()
		i.state.Store(int32(GateDone))
	})
	return i.result
}

// State returns the gate state.
func (i *Initializer) State() GateState {
	return GateState(i.state.Load())
}

// Result returns the resolution report and whether resolution has run.
func (i *Initializer) Result() (Resolution, bool) {
	if i.State() != GateDone {
		return Resolution{}, false
	}
	return i.result, true
}

// Namespaces returns the namespace layout in use
func (i *Initializer) Namespaces() Namespaces { return i.namespaces }

// Close unregisters the gate if it has not fired.
func (i *Initializer) Close() {
	i.gateMu.Lock()
	defer i.gateMu.Unlock()
	if i.gateID != 0 {
		i.tree.RemoveNodeChangeListener(i.gateID)
		i.gateID = 0
	}
}

// lateInitializer is the gate listener. It fires when the current namespace has
// been materialized in the default tree, meaning every default source is in.
type lateInitializer struct {
	initializer *Initializer
}

func (l *lateInitializer) Added(event NodeChangeEvent) {
	i := l.initializer
	i.logger.Debug().Str("node", event.Name).Msg("node added")

	if event.Name != i.namespaces.Current {
		return
	}

	i.ResolveEffectiveDefaults()

	// Done, unregister from the tree that raised the event
	i.gateMu.Lock()
	if i.gateID != 0 {
		event.Tree.RemoveNodeChangeListener(i.gateID)
		i.gateID = 0
	}
	i.gateMu.Unlock()
}

func (l *lateInitializer) Removed(event NodeChangeEvent) {
	l.initializer.logger.Debug().Str("node", event.Name).Msg("node removed")
}
