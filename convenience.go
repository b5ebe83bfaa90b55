// File: lixenwraith/crossprefs/convenience.go
package crossprefs

import (
	"errors"
)

// Quick creates an Initializer over tree with the default namespaces, the
// built-in toolchain table and filesystem discovery.
func Quick(tree *Tree) (*Initializer, error) {
	return NewBuilder().WithTree(tree).Build()
}

// Bootstrap runs both initialization phases: early defaults, then the merge of
// every source described by opts, which fires the gate. Resolution runs
// directly if the gate did not fire. Missing files are reported with
// ErrFileNotFound alongside a valid resolution; other load errors abort before
// resolution and unregister the gate.
func Bootstrap(i *Initializer, opts LoadOptions) (Resolution, *Loader, error) {
	i.InstallEarlyDefaults()

	loader := NewLoader(opts)
	loadErr := loader.Load()
	if loadErr != nil && !errors.Is(loadErr, ErrFileNotFound) {
		i.Close()
		return Resolution{}, loader, loadErr
	}

	loader.Apply(i.tree, i.namespaces.Current)

	// No-op when the gate already ran
	res := i.ResolveEffectiveDefaults()
	i.Close()

	return res, loader, loadErr
}
