// File: lixenwraith/crossprefs/io.go
package crossprefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadTree creates a tree from a file written by Tree.Save.
func LoadTree(path string) (*Tree, error) {
	t := NewTree()
	if err := t.Load(path); err != nil {
		return nil, err
	}
	return t, nil
}

// Load merges a saved preference file into the tree. Nodes it materializes
// raise Added events like any other merge.
func (t *Tree) Load(path string) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("failed to read preference tree '%s': %w", path, err)
	}

	raw := make(map[string]any)
	if err := toml.Unmarshal(fileData, &raw); err != nil {
		return fmt.Errorf("failed to parse TOML preference tree '%s': %w", path, err)
	}

	values, err := namespacesFromMap(raw, "", string(os.PathListSeparator))
	if err != nil {
		return fmt.Errorf("preference tree '%s': %w", path, err)
	}

	t.Merge(values)
	return nil
}

// Save writes every namespace of the tree to a TOML file atomically.
// Keys are written quoted, so dotted keys stay flat inside their namespace table.
func (t *Tree) Save(path string) error {
	snapshot := t.Snapshot()

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to marshal preference tree to TOML: %w", err)
	}

	return atomicWriteFile(path, buf.Bytes())
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file to '%s': %w", path, err)
	}
	removed = true

	return nil
}
