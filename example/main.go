// FILE: lixenwraith/crossprefs/example/main.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/lixenwraith/crossprefs"
	"github.com/rs/zerolog"
)

func main() {
	// =========================================================================
	// PART 1: INITIAL SETUP
	// A fake toolchain install and a product customization file in a temp dir.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 1: Creating a toolchain install and product customization...")

	dir, err := os.MkdirTemp("", "crossprefs-example")
	if err != nil {
		log.Fatalf("❌ Failed to create temp dir: %v", err)
	}
	defer func() {
		log.Println("---")
		log.Println("🧹 Cleaning up...")
		os.RemoveAll(dir)
	}()

	install := filepath.Join(dir, "xpacks", "arm-none-eabi-gcc")
	bin := filepath.Join(install, "8.2.1-1.1", "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		log.Fatalf("❌ Failed to create install: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bin, "arm-none-eabi-gcc"), nil, 0755); err != nil {
		log.Fatalf("❌ Failed to create compiler: %v", err)
	}

	product := filepath.Join(dir, "plugin_customization.ini")
	name := crossprefs.DefaultToolchainName
	customization := crossprefs.DefaultCurrentNamespace + "/" +
		crossprefs.ToolchainSearchPathKey(name) + "=" + filepath.Dir(install) + string(os.PathListSeparator) + install + "\n" +
		crossprefs.DefaultDeprecatedNamespace + "/" + crossprefs.KeyBuildToolsPath + "=/legacy/build-tools\n"
	if err := os.WriteFile(product, []byte(customization), 0644); err != nil {
		log.Fatalf("❌ Failed to write customization: %v", err)
	}
	log.Printf("✅ Compiler at %s, customization at %s.", bin, product)

	// =========================================================================
	// PART 2: EARLY DEFAULTS
	// Runs while the plugin starts; the host has not merged defaults yet.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 2: Installing early defaults...")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	tree := crossprefs.NewTree()
	initializer := crossprefs.NewBuilder().
		WithTree(tree).
		WithLogger(logger).
		MustBuild()

	initializer.InstallEarlyDefaults()
	log.Printf("  - Gate state: %s, listeners: %d", initializer.State(), tree.ListenerCount())

	// =========================================================================
	// PART 3: HOST MERGES DEFAULTS
	// Applying the loaded sources materializes the plugin node and fires the gate.
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 3: Merging default sources...")

	opts := crossprefs.DefaultLoadOptions()
	opts.ProductFile = product
	loader := crossprefs.NewLoader(opts)
	if err := loader.Load(); err != nil {
		log.Fatalf("❌ Failed to load defaults: %v", err)
	}
	loader.Apply(tree, crossprefs.DefaultCurrentNamespace)

	res, done := initializer.Result()
	if !done {
		log.Fatalf("❌ Gate did not fire")
	}
	log.Printf("  - Gate state: %s, listeners: %d", initializer.State(), tree.ListenerCount())
	log.Printf("  - Build tools: %s (%s from %s)", res.BuildTools.Value, res.BuildTools.Origin, res.BuildTools.Source)
	if tc, ok := res.Toolchain(name); ok {
		log.Printf("  - %s: %s (%s)", tc.Name, tc.Path, tc.Origin)
	}

	// =========================================================================
	// PART 4: PERSIST AND DECODE
	// =========================================================================
	log.Println("---")
	log.Println("➡️  PART 4: Saving state and reading it back...")

	state := filepath.Join(dir, "state.toml")
	if err := tree.Save(state); err != nil {
		log.Fatalf("❌ Failed to save state: %v", err)
	}
	reloaded, err := crossprefs.LoadTree(state)
	if err != nil {
		log.Fatalf("❌ Failed to load state: %v", err)
	}
	settings, err := reloaded.Toolchain(crossprefs.DefaultCurrentNamespace, name)
	if err != nil {
		log.Fatalf("❌ Failed to decode toolchain: %v", err)
	}
	log.Printf("✅ Saved path %s, search entries %v", settings.Path, settings.SearchPaths)
}
