// FILE: lixenwraith/crossprefs/decode_test.go
package crossprefs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanWithComplexTypes tests scanning a namespace into typed settings
func TestScanWithComplexTypes(t *testing.T) {
	type Probe struct {
		Timeout time.Duration `prefs:"timeout"`
		Retries int           `prefs:"retries"`
	}
	type Settings struct {
		BuildToolsPath string   `prefs:"buildToolsPath"`
		Verbose        bool     `prefs:"verbose"`
		Extra          []string `prefs:"extra"`
		Probe          Probe    `prefs:"probe"`
	}

	tree := NewTree()
	store := tree.Store("ns")
	store.Put("buildToolsPath", "/bt")
	store.Put("verbose", "true")
	store.Put("extra", "/a:/b")
	store.Put("probe.timeout", "2m30s")
	store.Put("probe.retries", "5")

	var s Settings
	require.NoError(t, tree.Scan("ns", "", &s))

	assert.Equal(t, "/bt", s.BuildToolsPath)
	assert.True(t, s.Verbose)
	assert.Equal(t, 150*time.Second, s.Probe.Timeout)
	assert.Equal(t, 5, s.Probe.Retries)
	assert.Len(t, s.Extra, 2)
}

// TestScanWithBasePath tests scanning a subtree of a namespace
func TestScanWithBasePath(t *testing.T) {
	tree := NewTree()
	store := tree.Store("ns")
	store.Put("probe.timeout", "1s")
	store.Put("probe.retries", "2")
	store.Put("other", "x")

	var probe struct {
		Timeout time.Duration `prefs:"timeout"`
		Retries int           `prefs:"retries"`
	}
	require.NoError(t, tree.Scan("ns", "probe.", &probe))
	assert.Equal(t, time.Second, probe.Timeout)
	assert.Equal(t, 2, probe.Retries)

	t.Run("MissingPathDecodesNothing", func(t *testing.T) {
		var empty struct {
			Value string `prefs:"value"`
		}
		require.NoError(t, tree.Scan("ns", "nope", &empty))
		assert.Equal(t, "", empty.Value)
	})

	t.Run("LeafPathFails", func(t *testing.T) {
		var target struct{}
		assert.Error(t, tree.Scan("ns", "other", &target))
	})
}

func TestToolchainSettings(t *testing.T) {
	tree := NewTree()
	name := DefaultToolchainName
	store := tree.Store(DefaultCurrentNamespace)
	store.Put(KeyToolchainName, name)
	store.Put(ToolchainPathKey(name), "/opt/gcc/bin")
	sep := string(os.PathListSeparator)
	store.Put(ToolchainSearchPathKey(name), "/a"+sep+"/b")
	store.Put(ToolchainOSSearchPathKey(name, "linux"), "/l")
	store.Put(ToolchainOSSearchPathKey(name, "windows"), `C:\w`)

	settings, err := tree.Toolchain(DefaultCurrentNamespace, name)
	require.NoError(t, err)

	assert.Equal(t, "/opt/gcc/bin", settings.Path)
	assert.Equal(t, "/a"+sep+"/b", settings.SearchPath)
	assert.Equal(t, []string{"/a", "/b"}, settings.SearchPaths)
	assert.Equal(t, map[string]string{"linux": "/l", "windows": `C:\w`}, settings.OSSearchPath)

	unknown, err := tree.Toolchain(DefaultCurrentNamespace, "unknown")
	require.NoError(t, err)
	assert.Equal(t, ToolchainSettings{}, unknown)
	assert.Nil(t, unknown.SearchPaths)
}

// TestInvalidScanTargets tests error handling for invalid scan targets
func TestInvalidScanTargets(t *testing.T) {
	tree := NewTree()
	tree.Store("ns").Put("k", "v")

	var s struct{}
	assert.Error(t, tree.Scan("ns", "", s), "non-pointer")

	var nilPtr *struct{}
	assert.Error(t, tree.Scan("ns", "", nilPtr), "nil pointer")
}

// TestZeroFields tests that stale field values are cleared before decoding
func TestZeroFields(t *testing.T) {
	tree := NewTree()
	tree.Store("ns").Put("a", "new")

	target := map[string]string{"stale": "x"}
	require.NoError(t, tree.Scan("ns", "", &target))
	assert.Equal(t, map[string]string{"a": "new"}, target)
}

// TestWeaklyTypedInput tests conversion from stored strings
func TestWeaklyTypedInput(t *testing.T) {
	tree := NewTree()
	store := tree.Store("ns")
	store.Put("count", "12")
	store.Put("ratio", "0.5")
	store.Put("enabled", "1")

	var s struct {
		Count   int64   `prefs:"count"`
		Ratio   float64 `prefs:"ratio"`
		Enabled bool    `prefs:"enabled"`
	}
	require.NoError(t, tree.Scan("ns", "", &s))
	assert.Equal(t, int64(12), s.Count)
	assert.Equal(t, 0.5, s.Ratio)
	assert.True(t, s.Enabled)

	store.Put("count", "many")
	assert.Error(t, tree.Scan("ns", "", &s))
}
