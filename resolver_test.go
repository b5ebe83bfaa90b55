package crossprefs

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe returns fixed answers and counts calls
type fakeProbe struct {
	mu              sync.Mutex
	buildTools      string
	toolchains      map[string]string // name -> path
	buildToolsCalls int
	toolchainCalls  map[string]int
	searchPaths     map[string]string // name -> last search path
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{
		toolchains:     make(map[string]string),
		toolchainCalls: make(map[string]int),
		searchPaths:    make(map[string]string),
	}
}

func (p *fakeProbe) DiscoverBuildToolsPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buildToolsCalls++
	return p.buildTools
}

func (p *fakeProbe) DiscoverToolchainPath(name, searchPath string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toolchainCalls[name]++
	p.searchPaths[name] = searchPath
	return p.toolchains[name]
}

// recordingStore wraps a Store and records every write
type recordingStore struct {
	Store
	writes []string
}

func (s *recordingStore) Put(key, value string) {
	s.writes = append(s.writes, key)
	s.Store.Put(key, value)
}

const (
	nsCommon  = "test.common"
	nsCurrent = "test.current"
	nsLegacy  = "test.legacy"
	nsLegacy2 = "test.legacy2"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("A",
		ToolchainDefinition{Name: "A", Prefix: "a-", SearchPaths: map[string]string{"linux": "/opt/a"}},
		ToolchainDefinition{Name: "B", Prefix: "b-"},
	)
	require.NoError(t, err)
	return r
}

func testResolver(t *testing.T, tree *Tree, probe Probe, legacy ...string) *Resolver {
	t.Helper()
	ns := Namespaces{Common: nsCommon, Current: nsCurrent, Legacy: legacy}
	r, err := NewResolver(ns.Layers(tree), testRegistry(t), probe, WithGOOS("linux"))
	require.NoError(t, err)
	return r
}

func TestNewResolverValidation(t *testing.T) {
	tree := NewTree()
	probe := newFakeProbe()
	reg := testRegistry(t)

	_, err := NewResolver([]Store{tree.Store("a")}, reg, probe)
	assert.ErrorIs(t, err, ErrInvalidLayers)

	_, err = NewResolver([]Store{tree.Store("a"), nil}, reg, probe)
	assert.ErrorIs(t, err, ErrInvalidLayers)

	_, err = NewResolver([]Store{tree.Store("a"), tree.Store("b")}, nil, probe)
	assert.ErrorIs(t, err, ErrNilRegistry)

	_, err = NewResolver([]Store{tree.Store("a"), tree.Store("b")}, reg, nil)
	assert.ErrorIs(t, err, ErrNilProbe)
}

func TestResolveBuildToolsPath(t *testing.T) {
	t.Run("CommonWins", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsCommon).Put(KeyBuildToolsPath, "/common")
		tree.Store(nsCurrent).Put(KeyBuildToolsPath, "/current")
		tree.Store(nsLegacy).Put(KeyBuildToolsPath, "/legacy")
		probe := newFakeProbe()

		res := testResolver(t, tree, probe, nsLegacy).ResolveBuildToolsPath()
		assert.Equal(t, BuildToolsResolution{Value: "/common", Origin: OriginStored, Source: nsCommon}, res)
		assert.Equal(t, 0, probe.buildToolsCalls)
		assert.Equal(t, "/common", tree.Store(nsCommon).Get(KeyBuildToolsPath))
		assert.Equal(t, "/legacy", tree.Store(nsLegacy).Get(KeyBuildToolsPath), "deprecated value untouched")
	})

	t.Run("CurrentBeatsLegacy", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsCurrent).Put(KeyBuildToolsPath, "/current")
		tree.Store(nsLegacy).Put(KeyBuildToolsPath, "/legacy")

		res := testResolver(t, tree, newFakeProbe(), nsLegacy).ResolveBuildToolsPath()
		assert.Equal(t, OriginMigrated, res.Origin)
		assert.Equal(t, nsCurrent, res.Source)
		assert.Equal(t, "/current", tree.Store(nsCommon).Get(KeyBuildToolsPath))
		assert.Equal(t, "/current", tree.Store(nsCurrent).Get(KeyBuildToolsPath), "lower store is left alone")
	})

	t.Run("LegacyMigrated", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsLegacy).Put(KeyBuildToolsPath, "/legacy")

		res := testResolver(t, tree, newFakeProbe(), nsLegacy).ResolveBuildToolsPath()
		assert.Equal(t, "/legacy", res.Value)
		assert.Equal(t, nsLegacy, res.Source)
		assert.Equal(t, "/legacy", tree.Store(nsCommon).Get(KeyBuildToolsPath))
	})

	t.Run("Discovered", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()
		probe.buildTools = "/found"

		res := testResolver(t, tree, probe).ResolveBuildToolsPath()
		assert.Equal(t, BuildToolsResolution{Value: "/found", Origin: OriginDiscovered}, res)
		assert.Equal(t, "/found", tree.Store(nsCommon).Get(KeyBuildToolsPath))
	})

	t.Run("Unresolved", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()

		res := testResolver(t, tree, probe).ResolveBuildToolsPath()
		assert.Equal(t, OriginUnresolved, res.Origin)
		assert.Equal(t, 1, probe.buildToolsCalls)
		assert.Empty(t, tree.Namespaces(), "nothing written")
	})
}

func TestResolveToolchain(t *testing.T) {
	t.Run("ExplicitPathMeansNoWrites", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsCommon).Put(KeyBuildToolsPath, "/bt")
		tree.Store(nsCurrent).Put(ToolchainPathKey("A"), "/explicit/a")
		tree.Store(nsCurrent).Put(ToolchainPathKey("B"), "/explicit/b")
		probe := newFakeProbe()

		layers := []Store{
			&recordingStore{Store: tree.Store(nsCommon)},
			&recordingStore{Store: tree.Store(nsCurrent)},
			&recordingStore{Store: tree.Store(nsLegacy)},
		}
		r, err := NewResolver(layers, testRegistry(t), probe, WithGOOS("linux"))
		require.NoError(t, err)

		res := r.Resolve()
		for _, l := range layers {
			assert.Empty(t, l.(*recordingStore).writes, "store %s written", l.Namespace())
		}
		assert.Equal(t, 0, probe.buildToolsCalls)
		assert.Empty(t, probe.toolchainCalls)

		a, ok := res.Toolchain("A")
		require.True(t, ok)
		assert.Equal(t, OriginStored, a.Origin)
		assert.Equal(t, "/explicit/a", a.Path)
	})

	t.Run("LegacyPathCopiedForward", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsLegacy).Put(ToolchainPathKey("A"), "/legacy/a")
		probe := newFakeProbe()

		res := testResolver(t, tree, probe, nsLegacy).ResolveToolchains()
		assert.Equal(t, ToolchainResolution{Name: "A", Path: "/legacy/a", Origin: OriginMigrated, Source: nsLegacy}, res[0])
		assert.Equal(t, "/legacy/a", tree.Store(nsCurrent).Get(ToolchainPathKey("A")))
		assert.Equal(t, "/legacy/a", tree.Store(nsLegacy).Get(ToolchainPathKey("A")))
		assert.Zero(t, probe.toolchainCalls["A"])
	})

	t.Run("FirstLegacyStoreWins", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsLegacy).Put(ToolchainPathKey("A"), "/one")
		tree.Store(nsLegacy2).Put(ToolchainPathKey("A"), "/two")
		tree.Store(nsLegacy2).Put(ToolchainPathKey("B"), "/two/b")

		res := testResolver(t, tree, newFakeProbe(), nsLegacy, nsLegacy2).ResolveToolchains()
		assert.Equal(t, "/one", res[0].Path)
		assert.Equal(t, "/two/b", res[1].Path)
		assert.Equal(t, nsLegacy2, res[1].Source)
	})

	t.Run("DiscoveredWithSeededSearchPath", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()
		probe.toolchains["A"] = "/opt/a/bin"

		res := testResolver(t, tree, probe).ResolveToolchains()
		want := ToolchainResolution{Name: "A", Path: "/opt/a/bin", SearchPath: "/opt/a", Origin: OriginDiscovered, Seeded: true}
		if diff := cmp.Diff(want, res[0]); diff != "" {
			t.Errorf("resolution mismatch (-want +got):\n%s", diff)
		}
		current := tree.Store(nsCurrent)
		assert.Equal(t, "/opt/a", current.Get(ToolchainSearchPathKey("A")))
		assert.Equal(t, "/opt/a/bin", current.Get(ToolchainPathKey("A")))
		assert.Equal(t, "/opt/a", probe.searchPaths["A"])
	})

	t.Run("StoredSearchPathUsedAsIs", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsCurrent).Put(ToolchainSearchPathKey("A"), "/custom")
		probe := newFakeProbe()

		res := testResolver(t, tree, probe).ResolveToolchains()
		assert.False(t, res[0].Seeded)
		assert.Equal(t, "/custom", probe.searchPaths["A"])
		assert.Equal(t, OriginUnresolved, res[0].Origin)
	})

	t.Run("OSSearchPathOverride", func(t *testing.T) {
		tree := NewTree()
		tree.Store(nsCurrent).Put(ToolchainOSSearchPathKey("B", "linux"), "/product/b")
		tree.Store(nsCurrent).Put(ToolchainOSSearchPathKey("B", "windows"), `C:\b`)
		probe := newFakeProbe()

		res := testResolver(t, tree, probe).ResolveToolchains()
		assert.True(t, res[1].Seeded)
		assert.Equal(t, "/product/b", res[1].SearchPath)
		assert.Equal(t, "/product/b", tree.Store(nsCurrent).Get(ToolchainSearchPathKey("B")))
	})

	t.Run("UnresolvableIsNotAnError", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()

		res := testResolver(t, tree, probe).ResolveToolchains()
		b := res[1]
		assert.Equal(t, ToolchainResolution{Name: "B", Origin: OriginUnresolved}, b)
		assert.Zero(t, probe.toolchainCalls["B"], "no search path, no probe")
		assert.Equal(t, "", tree.Store(nsCurrent).Get(ToolchainPathKey("B")))
	})
}

func TestResolveIdempotent(t *testing.T) {
	tree := NewTree()
	tree.Store(nsLegacy).Put(KeyBuildToolsPath, "/legacy/bt")
	probe := newFakeProbe()
	probe.toolchains["A"] = "/opt/a/bin"

	r := testResolver(t, tree, probe, nsLegacy)
	r.Resolve()
	first := tree.Snapshot()
	callsAfterFirst := probe.toolchainCalls["A"]

	second := r.Resolve()
	if diff := cmp.Diff(first, tree.Snapshot()); diff != "" {
		t.Errorf("second run changed the tree (-first +second):\n%s", diff)
	}
	assert.Equal(t, callsAfterFirst, probe.toolchainCalls["A"], "stored path skips discovery")
	assert.Equal(t, OriginStored, second.BuildTools.Origin)

	a, _ := second.Toolchain("A")
	assert.Equal(t, OriginStored, a.Origin)

	_, ok := second.Toolchain("missing")
	assert.False(t, ok)
}
