// File: lixenwraith/crossprefs/env_test.go
package crossprefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/crossprefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentVariables(t *testing.T) {
	t.Run("Known Keys From Files", func(t *testing.T) {
		dir := t.TempDir()
		state := filepath.Join(dir, "state.toml")
		require.NoError(t, os.WriteFile(state, []byte("[\"ilg.arm\"]\nbuildToolsPath = \"/state\"\n"), 0644))

		t.Setenv("TEST_ILG_ARM_BUILDTOOLSPATH", "/env")

		opts := crossprefs.DefaultLoadOptions()
		opts.EnvPrefix = "TEST_"
		opts.StateFile = state

		loader := crossprefs.NewLoader(opts)
		require.NoError(t, loader.Load())
		assert.Equal(t, "/env", loader.Values()["ilg.arm"]["buildToolsPath"])

		source, _ := loader.Origin("ilg.arm", "buildToolsPath")
		assert.Equal(t, crossprefs.SourceEnv, source)
	})

	t.Run("Declared Keys", func(t *testing.T) {
		name := crossprefs.DefaultToolchainName
		key := crossprefs.ToolchainPathKey(name)
		t.Setenv("TEST_ILG_ARM_TOOLCHAIN_GNU_MCU_ECLIPSE_ARM_EMBEDDED_GCC_PATH", "/opt/gcc/bin")

		opts := crossprefs.DefaultLoadOptions()
		opts.EnvPrefix = "TEST_"
		opts.EnvKeys = []string{"ilg.arm/" + key, "ilg.arm/unset"}

		loader := crossprefs.NewLoader(opts)
		require.NoError(t, loader.Load())
		values := loader.Values()["ilg.arm"]
		assert.Equal(t, "/opt/gcc/bin", values[key])
		_, present := values["unset"]
		assert.False(t, present)
	})

	t.Run("CLI Beats Env", func(t *testing.T) {
		t.Setenv("TEST_NS_K", "env")

		opts := crossprefs.DefaultLoadOptions()
		opts.EnvPrefix = "TEST_"
		opts.EnvKeys = []string{"ns/k"}
		opts.Args = []string{"--ns/k=cli"}

		loader := crossprefs.NewLoader(opts)
		require.NoError(t, loader.Load())
		assert.Equal(t, "cli", loader.Values()["ns"]["k"])
		assert.Equal(t, "env", loader.SourceValues(crossprefs.SourceEnv)["ns"]["k"])
	})

	t.Run("Custom Transform", func(t *testing.T) {
		t.Setenv("CUSTOM_k", "custom")

		opts := crossprefs.DefaultLoadOptions()
		opts.EnvKeys = []string{"ns/k"}
		opts.EnvTransform = func(namespace, key string) string {
			return "CUSTOM_" + key
		}

		loader := crossprefs.NewLoader(opts)
		require.NoError(t, loader.Load())
		assert.Equal(t, "custom", loader.Values()["ns"]["k"])
	})

	t.Run("Malformed Declared Key", func(t *testing.T) {
		opts := crossprefs.DefaultLoadOptions()
		opts.EnvKeys = []string{"no-namespace"}

		err := crossprefs.NewLoader(opts).Load()
		assert.Error(t, err)
	})
}
