// FILE: lixenwraith/crossprefs/convenience_test.go
package crossprefs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuickFunctions tests the one-call setup helpers
func TestQuickFunctions(t *testing.T) {
	tree := NewTree()
	i, err := Quick(tree)
	require.NoError(t, err)
	assert.Same(t, tree, i.tree)
	assert.Equal(t, DefaultNamespaces(), i.Namespaces())
}

func bootstrapInitializer(t *testing.T, tree *Tree, probe Probe) *Initializer {
	t.Helper()
	i, err := NewBuilder().
		WithTree(tree).
		WithNamespaces(Namespaces{Common: nsCommon, Current: nsCurrent, Legacy: []string{nsLegacy}}).
		WithRegistry(testRegistry(t)).
		WithProbe(probe).
		Build()
	require.NoError(t, err)
	return i
}

func TestBootstrap(t *testing.T) {
	t.Run("AllSourcesThenGate", func(t *testing.T) {
		dir := t.TempDir()
		state := filepath.Join(dir, "state.toml")
		writeTestFile(t, state, `
["test.legacy"]
buildToolsPath = "/legacy/bt"
"toolchain.B.path" = "/legacy/b"
`)
		product := filepath.Join(dir, "product.ini")
		writeTestFile(t, product, "test.current/toolchain.A.osSearchPath.linux=/product/a\n")

		tree := NewTree()
		probe := newFakeProbe()
		i := bootstrapInitializer(t, tree, probe)

		opts := DefaultLoadOptions()
		opts.PluginNamespace = nsCurrent
		opts.StateFile = state
		opts.ProductFile = product
		opts.Args = []string{"--test.current/toolchain.A.path=/cli/a"}

		res, loader, err := Bootstrap(i, opts)
		require.NoError(t, err)
		require.NotNil(t, loader)

		assert.Equal(t, GateDone, i.State())
		assert.Equal(t, 0, tree.ListenerCount())

		assert.Equal(t, OriginMigrated, res.BuildTools.Origin)
		assert.Equal(t, "/legacy/bt", tree.Store(nsCommon).Get(KeyBuildToolsPath))

		a, _ := res.Toolchain("A")
		assert.Equal(t, OriginStored, a.Origin)
		assert.Equal(t, "/cli/a", a.Path)

		b, _ := res.Toolchain("B")
		assert.Equal(t, OriginMigrated, b.Origin)
		assert.Equal(t, "/legacy/b", tree.Store(nsCurrent).Get(ToolchainPathKey("B")))

		source, _ := loader.Origin(nsCurrent, ToolchainPathKey("A"))
		assert.Equal(t, SourceCLI, source)
	})

	t.Run("MissingFilesStillResolve", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()
		i := bootstrapInitializer(t, tree, probe)

		opts := DefaultLoadOptions()
		opts.StateFile = filepath.Join(t.TempDir(), "missing.toml")

		res, _, err := Bootstrap(i, opts)
		assert.ErrorIs(t, err, ErrFileNotFound)
		assert.Equal(t, GateDone, i.State())
		assert.Len(t, res.Toolchains, 2)
		assert.Equal(t, "A", tree.Store(nsCurrent).Get(KeyToolchainName))
	})

	t.Run("PreMaterializedTreeResolvesDirectly", func(t *testing.T) {
		tree := NewTree()
		tree.Merge(map[string]map[string]string{nsCurrent: {ToolchainPathKey("A"): "/a"}})
		probe := newFakeProbe()
		i := bootstrapInitializer(t, tree, probe)

		res, _, err := Bootstrap(i, LoadOptions{Sources: []Source{SourceCLI}})
		require.NoError(t, err)
		assert.Equal(t, GateDone, i.State())
		assert.Equal(t, 0, tree.ListenerCount())
		a, _ := res.Toolchain("A")
		assert.Equal(t, "/a", a.Path)
	})

	t.Run("ParseErrorAborts", func(t *testing.T) {
		tree := NewTree()
		probe := newFakeProbe()
		i := bootstrapInitializer(t, tree, probe)

		opts := DefaultLoadOptions()
		opts.Args = []string{"not-an-override"}

		_, _, err := Bootstrap(i, opts)
		assert.ErrorIs(t, err, ErrOverrideParse)
		assert.Equal(t, GateWaiting, i.State())
		assert.Equal(t, 0, tree.ListenerCount())
		assert.Equal(t, 0, probe.buildToolsCalls)
	})
}
