package crossprefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, DefaultToolchainName, r.Default().Name)
	assert.Equal(t, 6, r.Len())
	assert.Equal(t, DefaultToolchainName, r.Names()[0])

	def, ok := r.Find("Linaro ARMv7 Linux GNU EABI HF")
	require.True(t, ok)
	assert.Equal(t, "/opt/linaro", def.DefaultSearchPath("linux"))
	assert.Equal(t, "", def.DefaultSearchPath("darwin"))

	_, ok = r.Find("unknown")
	assert.False(t, ok)
}

func TestToolchainExecutable(t *testing.T) {
	tests := []struct {
		name string
		def  ToolchainDefinition
		goos string
		want string
	}{
		{"DefaultCommand", ToolchainDefinition{Prefix: "arm-none-eabi-"}, "linux", "arm-none-eabi-gcc"},
		{"Windows", ToolchainDefinition{Prefix: "arm-none-eabi-"}, "windows", "arm-none-eabi-gcc.exe"},
		{"CustomCommand", ToolchainDefinition{Prefix: "x-", Command: "as"}, "darwin", "x-as"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.def.Executable(tt.goos))
		})
	}
}

func TestNewRegistry(t *testing.T) {
	a := ToolchainDefinition{Name: "A", SearchPaths: map[string]string{"linux": "/a"}}
	b := ToolchainDefinition{Name: "B"}

	t.Run("FirstIsDefault", func(t *testing.T) {
		r, err := NewRegistry("", a, b)
		require.NoError(t, err)
		assert.Equal(t, "A", r.Default().Name)
	})

	t.Run("NamedDefault", func(t *testing.T) {
		r, err := NewRegistry("B", a, b)
		require.NoError(t, err)
		assert.Equal(t, "B", r.Default().Name)
		assert.Equal(t, []string{"A", "B"}, r.Names())
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := NewRegistry("")
		assert.ErrorIs(t, err, ErrInvalidToolchain)

		_, err = NewRegistry("", a, a)
		assert.ErrorIs(t, err, ErrInvalidToolchain)

		_, err = NewRegistry("", ToolchainDefinition{})
		assert.ErrorIs(t, err, ErrInvalidToolchain)

		_, err = NewRegistry("C", a, b)
		assert.ErrorIs(t, err, ErrInvalidToolchain)
	})

	t.Run("OwnsItsData", func(t *testing.T) {
		paths := map[string]string{"linux": "/a"}
		r, err := NewRegistry("", ToolchainDefinition{Name: "A", SearchPaths: paths})
		require.NoError(t, err)

		paths["linux"] = "/changed"
		list := r.List()
		list[0].Name = "mutated"

		def, _ := r.Find("A")
		assert.Equal(t, "/a", def.DefaultSearchPath("linux"))
		assert.Equal(t, "A", r.Names()[0])
	})
}
