// FILE: lixenwraith/crossprefs/decode.go
package crossprefs

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag read when decoding preferences
const TagName = "prefs"

// ToolchainSettings is the decoded view of one toolchain's keys in a namespace.
// SearchPaths holds the entries of SearchPath split on the OS path list separator.
type ToolchainSettings struct {
	Path         string            `prefs:"path"`
	SearchPath   string            `prefs:"searchPath"`
	SearchPaths  []string          `prefs:"searchPath"`
	OSSearchPath map[string]string `prefs:"osSearchPath"`
}

// Toolchain decodes the keys of the named toolchain in namespace.
func (t *Tree) Toolchain(namespace, name string) (ToolchainSettings, error) {
	var settings ToolchainSettings
	if err := t.Scan(namespace, toolchainKeyPrefix+name, &settings); err != nil {
		return ToolchainSettings{}, err
	}
	return settings, nil
}

// Scan decodes the values of namespace under basePath into target, which must be
// a non-nil pointer. Dotted keys become nested tables; fields are matched with
// the `prefs` tag. An empty basePath decodes the whole namespace.
func (t *Tree) Scan(namespace, basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be non-nil pointer, got %T", target)
	}

	nestedMap := make(map[string]any)
	store := t.Store(namespace)
	// Keys are sorted, so leaf/subtree collisions resolve the same way every time
	for _, key := range store.Keys() {
		setNestedValue(nestedMap, key, store.Get(key))
	}

	sectionData := navigateToPath(nestedMap, basePath)

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		if sectionData == nil {
			sectionMap = make(map[string]any)
		} else {
			return fmt.Errorf("path %q in %s refers to non-table value (type %T)", basePath, namespace, sectionData)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          TagName,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(string(os.PathListSeparator)),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for %s path %q: %w", namespace, basePath, err)
	}

	return nil
}

// navigateToPath traverses nested map to reach the specified path
func navigateToPath(nested map[string]any, path string) any {
	path = strings.TrimSuffix(path, ".")
	if path == "" {
		return nested
	}

	current := any(nested)
	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil
		}
		current = value
	}

	return current
}
