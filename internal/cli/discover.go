package cli

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/crossprefs"
)

type discoverOptions struct {
	SearchPath string
}

func newDiscoverCommand() *cobra.Command {
	opts := discoverOptions{}
	cmd := &cobra.Command{
		Use:   "discover [toolchain]",
		Short: "Probe the filesystem for a toolchain, or the build tools without one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.SearchPath, "search-path", "", "Path list to search instead of the OS default")
	_ = viper.BindPFlag("search_path", cmd.Flags().Lookup("search-path"))
	return cmd
}

func runDiscover(cmd *cobra.Command, opts discoverOptions, args []string) error {
	registry := crossprefs.DefaultRegistry()
	probeOpts := crossprefs.DefaultProbeOptions()
	probeOpts.Logger = log.Logger
	probe := crossprefs.NewFSProbe(registry, probeOpts)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		path := probe.DiscoverBuildToolsPath()
		if path == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("build tools not found")
		}
		fmt.Fprintln(out, path)
		return nil
	}

	name := args[0]
	def, ok := registry.Find(name)
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown toolchain %q", name))
	}

	searchPath := flagOrConfig(cmd, "search-path", "search_path", opts.SearchPath)
	if searchPath == "" {
		searchPath = def.DefaultSearchPath(probeOpts.GOOS)
	}
	if searchPath == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no search path for %q on %s", name, probeOpts.GOOS))
	}

	path := probe.DiscoverToolchainPath(name, searchPath)
	if path == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found on %s", def.Executable(probeOpts.GOOS), searchPath))
	}
	fmt.Fprintln(out, path)
	return nil
}
