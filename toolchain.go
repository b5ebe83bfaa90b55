package crossprefs

import (
	"fmt"
	"runtime"
)

// DefaultToolchainName is the default entry of the built-in registry.
const DefaultToolchainName = "GNU MCU Eclipse ARM Embedded GCC"

// ToolchainDefinition describes a known toolchain family.
type ToolchainDefinition struct {
	// Name is the unique, human-readable id used in preference keys
	Name string

	// Prefix is prepended to tool names (e.g. "arm-none-eabi-")
	Prefix string

	// Command is the probed tool, "gcc" when empty
	Command string

	// SearchPaths maps a GOOS value to a default path list, separated by
	// os.PathListSeparator; ${VAR} references are expanded at discovery time
	SearchPaths map[string]string
}

// DefaultSearchPath returns the default search path for goos, or "".
func (d ToolchainDefinition) DefaultSearchPath(goos string) string {
	return d.SearchPaths[goos]
}

// DefaultSearchPathForCurrentOS returns the default search path for runtime.GOOS.
func (d ToolchainDefinition) DefaultSearchPathForCurrentOS() string {
	return d.DefaultSearchPath(runtime.GOOS)
}

// Executable returns the file name of the probed tool on goos.
func (d ToolchainDefinition) Executable(goos string) string {
	command := d.Command
	if command == "" {
		command = "gcc"
	}
	return d.Prefix + command + executableSuffix(goos)
}

func executableSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}

// Registry is an immutable, ordered list of toolchain definitions with a
// designated default entry.
type Registry struct {
	defs        []ToolchainDefinition
	byName      map[string]int
	defaultName string
}

// NewRegistry builds a registry in the given order. defaultName must name one
// of the definitions; an empty defaultName selects the first one.
func NewRegistry(defaultName string, defs ...ToolchainDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: registry needs at least one toolchain", ErrInvalidToolchain)
	}

	r := &Registry{
		defs:   make([]ToolchainDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidToolchain)
		}
		if _, exists := r.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidToolchain, def.Name)
		}

		// Own a copy of the search path table
		paths := make(map[string]string, len(def.SearchPaths))
		for goos, p := range def.SearchPaths {
			paths[goos] = p
		}
		def.SearchPaths = paths

		r.byName[def.Name] = len(r.defs)
		r.defs = append(r.defs, def)
	}

	if defaultName == "" {
		defaultName = r.defs[0].Name
	}
	if _, exists := r.byName[defaultName]; !exists {
		return nil, fmt.Errorf("%w: default %q is not registered", ErrInvalidToolchain, defaultName)
	}
	r.defaultName = defaultName

	return r, nil
}

// List returns the definitions in declared order. The slice is a copy.
func (r *Registry) List() []ToolchainDefinition {
	out := make([]ToolchainDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Names returns the toolchain names in declared order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

// Find looks up a definition by name.
func (r *Registry) Find(name string) (ToolchainDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ToolchainDefinition{}, false
	}
	return r.defs[i], true
}

// Default returns the designated default definition.
func (r *Registry) Default() ToolchainDefinition {
	return r.defs[r.byName[r.defaultName]]
}

// Len returns the number of definitions
func (r *Registry) Len() int { return len(r.defs) }

// DefaultRegistry returns the built-in toolchain table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultToolchainName, builtinToolchains()...)
	if err != nil {
		// The built-in table is static; failing here is a programming error
		panic(fmt.Sprintf("crossprefs: invalid built-in toolchain table: %v", err))
	}
	return r
}

func builtinToolchains() []ToolchainDefinition {
	return []ToolchainDefinition{
		{
			Name:   DefaultToolchainName,
			Prefix: "arm-none-eabi-",
			SearchPaths: map[string]string{
				"windows": `${APPDATA}\GNU MCU Eclipse\ARM Embedded GCC;${ProgramFiles}\GNU MCU Eclipse\ARM Embedded GCC`,
				"darwin":  "${HOME}/Library/xPacks/@gnu-mcu-eclipse/arm-none-eabi-gcc:/opt/gnu-mcu-eclipse/arm-none-eabi-gcc",
				"linux":   "${HOME}/opt/xPacks/@gnu-mcu-eclipse/arm-none-eabi-gcc:/opt/gnu-mcu-eclipse/arm-none-eabi-gcc",
			},
		},
		{
			Name:   "GNU Tools for ARM Embedded Processors",
			Prefix: "arm-none-eabi-",
			SearchPaths: map[string]string{
				"windows": `${ProgramFiles(x86)}\GNU Tools ARM Embedded;${ProgramFiles}\GNU Tools ARM Embedded`,
				"darwin":  "/usr/local/gcc-arm-none-eabi:/Applications/ARM",
				"linux":   "/usr/local/gcc-arm-none-eabi:/opt/gcc-arm-none-eabi",
			},
		},
		{
			Name:   "Linaro ARMv7 bare-metal EABI",
			Prefix: "arm-eabi-",
		},
		{
			Name:   "Linaro ARMv7 big-endian bare-metal EABI",
			Prefix: "armeb-eabi-",
		},
		{
			Name:   "Linaro ARMv7 Linux GNU EABI HF",
			Prefix: "arm-linux-gnueabihf-",
			SearchPaths: map[string]string{
				"linux": "/opt/linaro",
			},
		},
		{
			Name:   "Sourcery CodeBench Lite for ARM EABI",
			Prefix: "arm-none-eabi-",
			SearchPaths: map[string]string{
				"windows": `${ProgramFiles(x86)}\CodeSourcery\Sourcery_CodeBench_Lite_for_ARM_EABI`,
			},
		},
	}
}
