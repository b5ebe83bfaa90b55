// File: lixenwraith/crossprefs/doc.go

// Package crossprefs resolves default preferences for cross-compilation ARM
// toolchains from layered preference stores.
//
// Three kinds of namespaces take part, in strict read precedence:
//   - the common store shared by sibling plugins
//   - the current plugin store
//   - one or more deprecated plugin stores, read only to migrate values forward
//
// Features:
//   - Layered build-tools path and toolchain path resolution with copy-forward migration
//   - Injected discovery probe, with a filesystem implementation
//   - Immutable toolchain registry with per-OS default search paths
//   - Run-once lifecycle gate driven by node change events
//   - Default-scope loader merging state, plugin defaults, product customization,
//     environment and command line with configurable precedence
//   - TOML persistence of the preference tree with atomic writes
//   - Poll watcher re-merging changed defaults files into a running tree
//
// Quick Start:
//
//	tree := crossprefs.NewTree()
//	initializer, err := crossprefs.Quick(tree)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	initializer.InstallEarlyDefaults()
//
//	loader := crossprefs.NewLoader(crossprefs.DefaultLoadOptions())
//	if err := loader.Load(); err != nil && !errors.Is(err, crossprefs.ErrFileNotFound) {
//	    log.Fatal(err)
//	}
//	loader.Apply(tree) // fires the gate once the current namespace is materialized
//
//	res, _ := initializer.Result()
//	fmt.Println(res.BuildTools.Value)
//
// Default Source Precedence (highest to lowest):
//  1. Command-line overrides (--namespace/key=value)
//  2. Environment variables (CROSSPREFS_<NAMESPACE>_<KEY>)
//  3. Product customization file (plugin_customization.ini)
//  4. Plugin defaults file (preferences.ini / .toml / .yaml / .json)
//  5. Saved state file
//
// An empty string is the "unset" value throughout; lookups never fail.
package crossprefs
