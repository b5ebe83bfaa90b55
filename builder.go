// File: lixenwraith/crossprefs/builder.go
package crossprefs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Builder provides a fluent interface for building an Initializer
type Builder struct {
	tree       *Tree
	namespaces Namespaces
	registry   *Registry
	probe      Probe
	probeOpts  ProbeOptions
	logger     zerolog.Logger
	err        error
}

// NewBuilder creates a builder with the GNU MCU Eclipse namespaces, the
// built-in toolchain table and filesystem discovery.
func NewBuilder() *Builder {
	return &Builder{
		namespaces: DefaultNamespaces(),
		probeOpts:  DefaultProbeOptions(),
		logger:     zerolog.Nop(),
	}
}

// WithTree sets the preference tree; a new empty tree is used otherwise
func (b *Builder) WithTree(tree *Tree) *Builder {
	b.tree = tree
	return b
}

// WithNamespaces sets the full namespace layout
func (b *Builder) WithNamespaces(ns Namespaces) *Builder {
	b.namespaces = ns
	return b
}

// WithCurrentNamespace sets the namespace owned by the plugin
func (b *Builder) WithCurrentNamespace(ns string) *Builder {
	b.namespaces.Current = ns
	return b
}

// WithLegacyNamespaces replaces the deprecated namespaces, highest precedence first
func (b *Builder) WithLegacyNamespaces(ns ...string) *Builder {
	b.namespaces.Legacy = append([]string(nil), ns...)
	return b
}

// WithRegistry sets the toolchain registry
func (b *Builder) WithRegistry(r *Registry) *Builder {
	b.registry = r
	return b
}

// WithToolchains builds the registry from definitions
func (b *Builder) WithToolchains(defaultName string, defs ...ToolchainDefinition) *Builder {
	r, err := NewRegistry(defaultName, defs...)
	if err != nil && b.err == nil {
		b.err = err
	}
	b.registry = r
	return b
}

// WithProbe sets a custom discovery probe
func (b *Builder) WithProbe(p Probe) *Builder {
	b.probe = p
	return b
}

// WithProbeOptions configures the filesystem probe used when no probe is set
func (b *Builder) WithProbeOptions(opts ProbeOptions) *Builder {
	b.probeOpts = opts
	return b
}

// WithLogger sets the logger shared by the initializer, resolver and default probe
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates the Initializer with all specified options
func (b *Builder) Build() (*Initializer, error) {
	if b.err != nil {
		return nil, b.err
	}

	tree := b.tree
	if tree == nil {
		tree = NewTree()
	}
	registry := b.registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	probe := b.probe
	if probe == nil {
		opts := b.probeOpts
		opts.Logger = b.logger
		probe = NewFSProbe(registry, opts)
	}

	i, err := NewInitializer(tree, b.namespaces, registry, probe, b.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build initializer: %w", err)
	}
	return i, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Initializer {
	i, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("crossprefs build failed: %v", err))
	}
	return i
}
