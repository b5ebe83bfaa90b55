// FILE: lixenwraith/crossprefs/discovery.go
package crossprefs

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"
	"github.com/rs/zerolog"
)

// Probe locates installed tools on the local machine.
// Implementations report "not found" as an empty string and never fail.
type Probe interface {
	// DiscoverBuildToolsPath returns the folder holding make, or ""
	DiscoverBuildToolsPath() string

	// DiscoverToolchainPath returns the folder holding the toolchain's tools,
	// searching the given path list, or ""
	DiscoverToolchainPath(name, searchPath string) string
}

// ProbeOptions configures filesystem discovery
type ProbeOptions struct {
	// Environment variable naming an explicit build tools folder
	BuildToolsEnvVar string

	// Path list entries searched for the build tools
	BuildToolsPaths []string

	// Build tool looked up in candidate folders, "make" when empty
	BuildToolsCommand string

	// Target operating system, runtime.GOOS when empty
	GOOS string

	Logger zerolog.Logger
}

// DefaultProbeOptions returns the install locations used by the GNU MCU Eclipse
// packages. Only Windows ships separate build tools; elsewhere make is a system tool.
func DefaultProbeOptions() ProbeOptions {
	opts := ProbeOptions{
		BuildToolsEnvVar:  "CROSSPREFS_BUILD_TOOLS_PATH",
		BuildToolsCommand: "make",
		GOOS:              runtime.GOOS,
		Logger:            zerolog.Nop(),
	}
	if opts.GOOS == "windows" {
		opts.BuildToolsPaths = []string{
			`${APPDATA}\GNU MCU Eclipse\Build Tools`,
			`${ProgramFiles}\GNU MCU Eclipse\Build Tools`,
			`${APPDATA}\xPacks\@gnu-mcu-eclipse\windows-build-tools`,
		}
	}
	return opts
}

// FSProbe discovers tools by scanning folders on the local filesystem.
type FSProbe struct {
	registry *Registry
	opts     ProbeOptions
}

// NewFSProbe creates a probe resolving toolchain names against registry.
func NewFSProbe(registry *Registry, opts ProbeOptions) *FSProbe {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.BuildToolsCommand == "" {
		opts.BuildToolsCommand = "make"
	}
	return &FSProbe{registry: registry, opts: opts}
}

// DiscoverBuildToolsPath checks the environment override, then the configured folders.
func (p *FSProbe) DiscoverBuildToolsPath() string {
	if p.opts.BuildToolsEnvVar != "" {
		if dir := os.Getenv(p.opts.BuildToolsEnvVar); dir != "" && isDir(dir) {
			p.opts.Logger.Debug().Str("path", dir).Str("env", p.opts.BuildToolsEnvVar).Msg("build tools from environment")
			return dir
		}
	}

	exe := p.opts.BuildToolsCommand + executableSuffix(p.opts.GOOS)
	dir := p.searchFolders(p.opts.BuildToolsPaths, exe)
	p.opts.Logger.Debug().Str("path", dir).Msg("build tools discovery finished")
	return dir
}

// DiscoverToolchainPath searches searchPath for the toolchain's compiler.
// Unknown toolchain names are not discoverable.
func (p *FSProbe) DiscoverToolchainPath(name, searchPath string) string {
	if p.registry == nil {
		return ""
	}
	def, ok := p.registry.Find(name)
	if !ok {
		p.opts.Logger.Debug().Str("toolchain", name).Msg("unknown toolchain, skipping discovery")
		return ""
	}

	dir := p.searchFolders(filepath.SplitList(searchPath), def.Executable(p.opts.GOOS))
	p.opts.Logger.Debug().
		Str("toolchain", name).
		Str("search_path", searchPath).
		Str("path", dir).
		Msg("toolchain discovery finished")
	return dir
}

// searchFolders returns the first folder holding exe, trying for each entry:
// <entry>/bin, <entry>, then <entry>/<version>/bin newest version first.
func (p *FSProbe) searchFolders(entries []string, exe string) string {
	for _, entry := range entries {
		root := expandPath(entry)
		if root == "" || !isDir(root) {
			continue
		}

		for _, candidate := range []string{filepath.Join(root, "bin"), root} {
			if isFile(filepath.Join(candidate, exe)) {
				return candidate
			}
		}

		for _, sub := range versionDirs(root) {
			candidate := filepath.Join(root, sub, "bin")
			if isFile(filepath.Join(candidate, exe)) {
				return candidate
			}
		}
	}
	return ""
}

// versionDirs lists subfolder names of root, newest version first.
// Names that are not versions sort after, in descending lexical order.
// Read errors yield no entries.
func versionDirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	type versioned struct {
		name    string
		version debversion.Version
		valid   bool
	}

	dirs := make([]versioned, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := debversion.NewVersion(e.Name())
		dirs = append(dirs, versioned{name: e.Name(), version: v, valid: err == nil})
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		a, b := dirs[i], dirs[j]
		switch {
		case a.valid && b.valid:
			if c := a.version.Compare(b.version); c != 0 {
				return c > 0
			}
			return a.name > b.name
		case a.valid != b.valid:
			return a.valid
		default:
			return a.name > b.name
		}
	})

	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.name
	}
	return names
}

// expandPath expands ${VAR} references and a leading "~".
// Entries referencing unset variables are dropped.
func expandPath(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}

	missing := false
	expanded := os.Expand(entry, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			missing = true
		}
		return value
	})
	if missing {
		return ""
	}

	if expanded == "~" || strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		expanded = filepath.Join(home, expanded[1:])
	}
	return filepath.Clean(expanded)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
