// FILE: lixenwraith/crossprefs/loader.go
package crossprefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Source represents a default-scope value source, used to define load precedence
type Source string

const (
	// SourceCLI represents overrides passed on the command line
	SourceCLI Source = "cli"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceProduct represents the product customization file
	SourceProduct Source = "product"
	// SourcePlugin represents the plugin defaults file
	SourcePlugin Source = "plugin"
	// SourceState represents a previously saved preference tree
	SourceState Source = "state"
)

// EnvTransformFunc converts a namespace and key to an environment variable name
type EnvTransformFunc func(namespace, key string) string

// LoadOptions configures how default-scope values are gathered
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority)
	// Default: [SourceCLI, SourceEnv, SourceProduct, SourcePlugin, SourceState]
	Sources []Source

	// Files per source; empty paths are skipped
	StateFile   string
	PluginFile  string
	ProductFile string

	// PluginNamespace receives keys of the plugin file that carry no namespace
	PluginNamespace string

	// EnvPrefix is prepended to environment variable names
	// Example: "CROSSPREFS_" maps ("a.b", "buildToolsPath") to "CROSSPREFS_A_B_BUILDTOOLSPATH"
	EnvPrefix string

	// EnvTransform customizes how namespace/key pairs map to environment variables
	EnvTransform EnvTransformFunc

	// EnvKeys lists "namespace/key" pairs checked in the environment even when
	// no file mentions them
	EnvKeys []string

	// Args holds command-line overrides: "--namespace/key=value",
	// "--namespace/key value" or "namespace/key=value"
	Args []string

	// Namespaces are always materialized by Apply, even without values
	Namespaces []string

	// ListSeparator joins list values of structured files, os.PathListSeparator by default
	ListSeparator string
}

// DefaultLoadOptions returns the standard load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources:         []Source{SourceCLI, SourceEnv, SourceProduct, SourcePlugin, SourceState},
		PluginNamespace: DefaultCurrentNamespace,
		EnvPrefix:       "CROSSPREFS_",
		ListSeparator:   string(os.PathListSeparator),
	}
}

// Loader gathers default-scope values from every configured source and merges
// them by precedence, the way a host merges plugin defaults, product
// customization and command-line options before plugins finish starting.
type Loader struct {
	opts LoadOptions
	data map[Source]map[string]map[string]string
}

// NewLoader creates a loader. Nothing is read until Load is called.
func NewLoader(opts LoadOptions) *Loader {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultLoadOptions().Sources
	}
	if opts.ListSeparator == "" {
		opts.ListSeparator = string(os.PathListSeparator)
	}
	return &Loader{
		opts: opts,
		data: make(map[Source]map[string]map[string]string),
	}
}

// Options returns the loader options
func (l *Loader) Options() LoadOptions { return l.opts }

// Load reads every configured source. Missing files are reported as
// ErrFileNotFound joined with other non-fatal errors; parse failures are fatal.
func (l *Loader) Load() error {
	var loadErrors []error
	envWanted := false

	// Process each source according to precedence (in reverse order for proper layering)
	for i := len(l.opts.Sources) - 1; i >= 0; i-- {
		source := l.opts.Sources[i]

		switch source {
		case SourceState:
			if err := l.loadSourceFile(source, l.opts.StateFile, ""); err != nil {
				if !errors.Is(err, ErrFileNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}

		case SourcePlugin:
			if err := l.loadSourceFile(source, l.opts.PluginFile, l.opts.PluginNamespace); err != nil {
				if !errors.Is(err, ErrFileNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}

		case SourceProduct:
			if err := l.loadSourceFile(source, l.opts.ProductFile, ""); err != nil {
				if !errors.Is(err, ErrFileNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}

		case SourceEnv:
			// Needs the keys known from every other source
			envWanted = true

		case SourceCLI:
			if len(l.opts.Args) > 0 {
				overrides, err := parseOverrides(l.opts.Args)
				if err != nil {
					return err
				}
				l.data[SourceCLI] = overrides
			}

		default:
			return fmt.Errorf("unknown source %q", source)
		}
	}

	if envWanted {
		if err := l.loadEnv(); err != nil {
			loadErrors = append(loadErrors, err)
		}
	}

	return errors.Join(loadErrors...)
}

// LoadFile reads path as the given source, replacing earlier values of that source.
func (l *Loader) LoadFile(source Source, path string) error {
	defaultNS := ""
	if source == SourcePlugin {
		defaultNS = l.opts.PluginNamespace
	}
	return l.loadSourceFile(source, path, defaultNS)
}

func (l *Loader) loadSourceFile(source Source, path, defaultNS string) error {
	if path == "" {
		return nil
	}
	values, err := readPreferenceFile(path, defaultNS, l.opts.ListSeparator)
	if err != nil {
		return err
	}
	l.data[source] = values
	return nil
}

// loadEnv looks up every known namespace/key pair in the environment
func (l *Loader) loadEnv() error {
	transform := l.opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(l.opts.EnvPrefix)
	}

	known := make(map[string]map[string]bool)
	addKnown := func(ns, key string) {
		if known[ns] == nil {
			known[ns] = make(map[string]bool)
		}
		known[ns][key] = true
	}
	for source, byNS := range l.data {
		if source == SourceEnv {
			continue
		}
		for ns, values := range byNS {
			for key := range values {
				addKnown(ns, key)
			}
		}
	}
	for _, pair := range l.opts.EnvKeys {
		ns, key, ok := splitQualifiedKey(pair)
		if !ok {
			return fmt.Errorf("invalid environment key %q, want namespace/key", pair)
		}
		addKnown(ns, key)
	}

	found := make(map[string]map[string]string)
	for ns, keys := range known {
		for key := range keys {
			if value, exists := os.LookupEnv(transform(ns, key)); exists {
				if found[ns] == nil {
					found[ns] = make(map[string]string)
				}
				found[ns][key] = value
			}
		}
	}

	if len(found) == 0 {
		delete(l.data, SourceEnv)
		return nil
	}
	l.data[SourceEnv] = found
	return nil
}

// Values returns the merged values: for each namespace/key the first source in
// precedence order that defines it wins, even with an empty value.
func (l *Loader) Values() map[string]map[string]string {
	return l.valuesWithout("")
}

// valuesWithout merges like Values but ignores the skipped source.
func (l *Loader) valuesWithout(skip Source) map[string]map[string]string {
	merged := make(map[string]map[string]string)
	for i := len(l.opts.Sources) - 1; i >= 0; i-- {
		if l.opts.Sources[i] == skip {
			continue
		}
		for ns, values := range l.data[l.opts.Sources[i]] {
			if merged[ns] == nil {
				merged[ns] = make(map[string]string)
			}
			for key, value := range values {
				merged[ns][key] = value
			}
		}
	}
	return merged
}

// SourceValues returns a copy of the values read from one source.
func (l *Loader) SourceValues(source Source) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for ns, values := range l.data[source] {
		out[ns] = make(map[string]string, len(values))
		for k, v := range values {
			out[ns][k] = v
		}
	}
	return out
}

// Origin reports which source provides the merged value of namespace/key.
func (l *Loader) Origin(namespace, key string) (Source, bool) {
	for _, source := range l.opts.Sources {
		if values, ok := l.data[source][namespace]; ok {
			if _, ok := values[key]; ok {
				return source, true
			}
		}
	}
	return "", false
}

// Apply merges the loaded values into tree in one step. Namespaces listed in
// the options, plus ensure, are materialized even when no source defines them.
// Returns the namespaces materialized by this call.
func (l *Loader) Apply(tree *Tree, ensure ...string) []string {
	values := l.Values()
	for _, ns := range append(append([]string(nil), l.opts.Namespaces...), ensure...) {
		if _, ok := values[ns]; !ok {
			values[ns] = make(map[string]string)
		}
	}
	return tree.Merge(values)
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(namespace, key string) string {
		var b strings.Builder
		b.WriteString(prefix)
		for _, r := range strings.ToUpper(namespace + "_" + key) {
			if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		return b.String()
	}
}

// parseOverrides processes command-line overrides into namespace/key values.
func parseOverrides(args []string) (map[string]map[string]string, error) {
	result := make(map[string]map[string]string)
	i := 0
	for i < len(args) {
		arg := args[i]

		var qualified, valueStr string
		switch {
		case arg == "--":
			// Separator
			i++
			continue

		case strings.HasPrefix(arg, "--"):
			content := strings.TrimPrefix(arg, "--")
			if k, v, ok := strings.Cut(content, "="); ok {
				// "--namespace/key=value"
				qualified, valueStr = k, v
				i++
			} else if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				// Boolean flag
				qualified, valueStr = content, "true"
				i++
			} else {
				qualified, valueStr = content, args[i+1]
				i += 2
			}

		default:
			k, v, ok := strings.Cut(arg, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q has no value", ErrOverrideParse, arg)
			}
			qualified, valueStr = k, v
			i++
		}

		ns, key, ok := splitQualifiedKey(qualified)
		if !ok {
			return nil, fmt.Errorf("%w: %q, want namespace/key", ErrOverrideParse, qualified)
		}
		if err := validateNamespace(ns); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOverrideParse, err)
		}

		if result[ns] == nil {
			result[ns] = make(map[string]string)
		}
		result[ns][key] = valueStr
	}

	return result, nil
}

// splitQualifiedKey splits "namespace/key" at the first slash.
func splitQualifiedKey(s string) (namespace, key string, ok bool) {
	namespace, key, ok = strings.Cut(s, "/")
	if !ok || namespace == "" || key == "" {
		return "", "", false
	}
	return namespace, key, true
}

// readPreferenceFile parses a defaults file into namespace/key values.
// Keys without a namespace go to defaultNS; without one they are rejected.
func readPreferenceFile(path, defaultNS, listSep string) (map[string]map[string]string, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read preference file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(fileData)
	}

	if format == "properties" {
		return parseProperties(path, fileData, defaultNS)
	}

	raw := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(fileData, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML preference file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON preference file '%s': %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(fileData, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML preference file '%s': %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownFormat, path)
	}

	values, err := namespacesFromMap(raw, defaultNS, listSep)
	if err != nil {
		return nil, fmt.Errorf("preference file '%s': %w", path, err)
	}
	return values, nil
}

// namespacesFromMap converts {namespace: {key: value}} data. Nested tables under
// a namespace flatten to dotted keys; top-level scalars belong to defaultNS.
func namespacesFromMap(raw map[string]any, defaultNS, listSep string) (map[string]map[string]string, error) {
	result := make(map[string]map[string]string)
	put := func(ns, key string, val any) error {
		s, err := stringValue(val, listSep)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", ns, key, err)
		}
		if result[ns] == nil {
			result[ns] = make(map[string]string)
		}
		result[ns][key] = s
		return nil
	}

	// Sorted for deterministic error reporting
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := raw[name]
		table, isTable := value.(map[string]any)
		if !isTable {
			if defaultNS == "" {
				return nil, fmt.Errorf("key %q has no namespace", name)
			}
			if err := put(defaultNS, name, value); err != nil {
				return nil, err
			}
			continue
		}

		if err := validateNamespace(name); err != nil {
			return nil, err
		}
		if result[name] == nil {
			result[name] = make(map[string]string)
		}
		for key, val := range flattenMap(table, "") {
			if err := put(name, key, val); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// parseProperties reads Eclipse-style "namespace/key=value" customization files.
func parseProperties(path string, data []byte, defaultNS string) (map[string]map[string]string, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := loader.LoadBytes(escapeKeyWhitespace(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties file '%s': %w", path, err)
	}

	result := make(map[string]map[string]string)
	for _, qualified := range props.Keys() {
		value, _ := props.Get(qualified)

		ns, key, ok := splitQualifiedKey(qualified)
		if !ok {
			if defaultNS == "" || strings.Contains(qualified, "/") {
				return nil, fmt.Errorf("properties file '%s': key %q has no namespace", path, qualified)
			}
			ns, key = defaultNS, qualified
		}
		if err := validateNamespace(ns); err != nil {
			return nil, fmt.Errorf("properties file '%s': %w", path, err)
		}

		if result[ns] == nil {
			result[ns] = make(map[string]string)
		}
		result[ns][key] = value
	}
	return result, nil
}

// escapeKeyWhitespace escapes blanks inside keys so that a key ends at the
// first unescaped '=' or ':' and toolchain names with spaces stay intact.
// Lines without a separator and continuation lines pass through unchanged.
func escapeKeyWhitespace(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	continued := false
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t\f")
		if continued {
			continued = endsWithContinuation(line)
			continue
		}
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == '!' {
			continue
		}
		continued = endsWithContinuation(line)
		sep := -1
		for j := 0; j < len(trimmed); j++ {
			if trimmed[j] == '\\' {
				j++
				continue
			}
			if trimmed[j] == '=' || trimmed[j] == ':' {
				sep = j
				break
			}
		}
		if sep < 0 {
			continue
		}

		key := strings.TrimRight(trimmed[:sep], " \t\f")
		var b strings.Builder
		for j := 0; j < len(key); j++ {
			switch key[j] {
			case '\\':
				b.WriteByte(key[j])
				if j+1 < len(key) {
					j++
					b.WriteByte(key[j])
				}
			case ' ', '\t', '\f':
				b.WriteByte('\\')
				b.WriteByte(key[j])
			default:
				b.WriteByte(key[j])
			}
		}
		lines[i] = b.String() + trimmed[sep:]
	}
	return []byte(strings.Join(lines, "\n"))
}

// endsWithContinuation reports an odd number of trailing backslashes.
func endsWithContinuation(line string) bool {
	line = strings.TrimRight(line, "\r")
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".ini", ".properties", ".prefs":
		return "properties"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	// YAML accepts most text as a scalar, so insist on a mapping
	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil && len(yamlTest) > 0 {
		return "yaml"
	}

	return "properties"
}
