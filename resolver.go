// FILE: lixenwraith/crossprefs/resolver.go
package crossprefs

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Origin tells where a resolved value came from
type Origin string

const (
	// OriginStored means the owning store already held the value
	OriginStored Origin = "stored"
	// OriginMigrated means the value was copied forward from a lower store
	OriginMigrated Origin = "migrated"
	// OriginDiscovered means the probe found the value
	OriginDiscovered Origin = "discovered"
	// OriginUnresolved means no value could be found; this is not an error
	OriginUnresolved Origin = "unresolved"
)

// BuildToolsResolution records the outcome of build tools path resolution.
type BuildToolsResolution struct {
	Value  string
	Origin Origin
	Source string // namespace the value was read from, "" if discovered or unresolved
}

// ToolchainResolution records the outcome for one toolchain.
type ToolchainResolution struct {
	Name       string
	Path       string
	SearchPath string
	Origin     Origin
	Source     string
	Seeded     bool // the search path was copied from the OS default
}

// Resolution is the report of a full resolution run.
type Resolution struct {
	BuildTools BuildToolsResolution
	Toolchains []ToolchainResolution
}

// Toolchain returns the resolution of the named toolchain.
func (r Resolution) Toolchain(name string) (ToolchainResolution, bool) {
	for _, tc := range r.Toolchains {
		if tc.Name == name {
			return tc, true
		}
	}
	return ToolchainResolution{}, false
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// WithGOOS overrides the operating system used to pick default search paths.
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// Resolver computes effective build tools and toolchain paths from layered stores.
//
// layers[0] is the common store, layers[1] the current plugin store and any
// further entries are deprecated stores in decreasing precedence. Values found
// below their owning store are copied into it so later runs stop at the first read.
type Resolver struct {
	layers   []Store
	registry *Registry
	probe    Probe
	logger   zerolog.Logger
	goos     string
}

// NewResolver creates a resolver over the given precedence list.
func NewResolver(layers []Store, registry *Registry, probe Probe, opts ...ResolverOption) (*Resolver, error) {
	if len(layers) < 2 {
		return nil, ErrInvalidLayers
	}
	for _, l := range layers {
		if l == nil {
			return nil, ErrInvalidLayers
		}
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if probe == nil {
		return nil, ErrNilProbe
	}

	r := &Resolver{
		layers:   append([]Store(nil), layers...),
		registry: registry,
		probe:    probe,
		logger:   zerolog.Nop(),
		goos:     runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Resolver) common() Store   { return r.layers[0] }
func (r *Resolver) current() Store  { return r.layers[1] }
func (r *Resolver) legacy() []Store { return r.layers[2:] }

// Resolve runs build tools resolution, then toolchain resolution.
func (r *Resolver) Resolve() Resolution {
	return Resolution{
		BuildTools: r.ResolveBuildToolsPath(),
		Toolchains: r.ResolveToolchains(),
	}
}

// ResolveBuildToolsPath makes sure the common store holds the build tools path.
// The first non-empty value of common, current, legacy stores, then discovery wins.
// Only a value not already in the common store is written there.
func (r *Resolver) ResolveBuildToolsPath() BuildToolsResolution {
	if value := r.common().Get(KeyBuildToolsPath); value != "" {
		r.logger.Debug().Str("path", value).Str("store", r.common().Namespace()).Msg("build tools path already set")
		return BuildToolsResolution{Value: value, Origin: OriginStored, Source: r.common().Namespace()}
	}

	res := BuildToolsResolution{Origin: OriginUnresolved}
	for _, store := range r.layers[1:] {
		if value := store.Get(KeyBuildToolsPath); value != "" {
			res = BuildToolsResolution{Value: value, Origin: OriginMigrated, Source: store.Namespace()}
			break
		}
	}

	if res.Value == "" {
		if value := r.probe.DiscoverBuildToolsPath(); value != "" {
			res = BuildToolsResolution{Value: value, Origin: OriginDiscovered}
		}
	}

	if res.Value == "" {
		r.logger.Debug().Msg("build tools path not found")
		return res
	}

	r.common().Put(KeyBuildToolsPath, res.Value)
	r.logger.Info().
		Str("path", res.Value).
		Str("origin", string(res.Origin)).
		Str("from", res.Source).
		Str("store", r.common().Namespace()).
		Msg("build tools path recorded")
	return res
}

// ResolveToolchains resolves every registered toolchain in declared order.
// Toolchains are independent; an unresolved one does not stop the others.
func (r *Resolver) ResolveToolchains() []ToolchainResolution {
	defs := r.registry.List()
	out := make([]ToolchainResolution, 0, len(defs))
	for _, def := range defs {
		out = append(out, r.resolveToolchain(def))
	}
	return out
}

func (r *Resolver) resolveToolchain(def ToolchainDefinition) ToolchainResolution {
	name := def.Name
	current := r.current()
	pathKey := ToolchainPathKey(name)
	log := r.logger.With().Str("toolchain", name).Logger()

	if path := current.Get(pathKey); path != "" {
		log.Debug().Str("path", path).Msg("toolchain path already set")
		return ToolchainResolution{Name: name, Path: path, Origin: OriginStored, Source: current.Namespace()}
	}

	for _, store := range r.legacy() {
		if path := store.Get(pathKey); path != "" {
			current.Put(pathKey, path)
			log.Info().Str("path", path).Str("from", store.Namespace()).Msg("toolchain path migrated")
			return ToolchainResolution{Name: name, Path: path, Origin: OriginMigrated, Source: store.Namespace()}
		}
	}

	res := ToolchainResolution{Name: name, Origin: OriginUnresolved}

	searchKey := ToolchainSearchPathKey(name)
	res.SearchPath = current.Get(searchKey)
	if res.SearchPath == "" {
		res.SearchPath = current.Get(ToolchainOSSearchPathKey(name, r.goos))
		if res.SearchPath == "" {
			res.SearchPath = def.DefaultSearchPath(r.goos)
		}
		if res.SearchPath != "" {
			current.Put(searchKey, res.SearchPath)
			res.Seeded = true
			log.Debug().Str("search_path", res.SearchPath).Str("os", r.goos).Msg("search path seeded")
		}
	}

	if res.SearchPath == "" {
		log.Debug().Msg("no search path, toolchain left unconfigured")
		return res
	}

	if path := r.probe.DiscoverToolchainPath(name, res.SearchPath); path != "" {
		current.Put(pathKey, path)
		res.Path = path
		res.Origin = OriginDiscovered
		log.Info().Str("path", path).Str("search_path", res.SearchPath).Msg("toolchain discovered")
		return res
	}

	log.Debug().Str("search_path", res.SearchPath).Msg("toolchain not found on search path")
	return res
}
