package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/crossprefs"
)

// loadOptions collects the default sources named by the persistent flags.
func loadOptions(cmd *cobra.Command, registry *crossprefs.Registry, ns crossprefs.Namespaces) crossprefs.LoadOptions {
	opts := crossprefs.DefaultLoadOptions()
	opts.PluginNamespace = ns.Current
	opts.StateFile = viper.GetString("state")
	opts.PluginFile = viper.GetString("plugin_defaults")
	opts.ProductFile = viper.GetString("product")
	if prefix := viper.GetString("env_prefix"); prefix != "" {
		opts.EnvPrefix = prefix
	}
	if prefs, err := cmd.Flags().GetStringArray("pref"); err == nil {
		opts.Args = prefs
	}
	opts.EnvKeys = envKeys(registry, ns)
	return opts
}

// envKeys lists the keys worth looking up in the environment even when no
// file mentions them.
func envKeys(registry *crossprefs.Registry, ns crossprefs.Namespaces) []string {
	keys := []string{
		ns.Common + "/" + crossprefs.KeyBuildToolsPath,
		ns.Current + "/" + crossprefs.KeyToolchainName,
	}
	for _, name := range registry.Names() {
		keys = append(keys,
			ns.Current+"/"+crossprefs.ToolchainPathKey(name),
			ns.Current+"/"+crossprefs.ToolchainSearchPathKey(name),
		)
	}
	return keys
}
