package cli

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/crossprefs"
)

type toolchainsOptions struct {
	GOOS string
}

func newToolchainsCommand() *cobra.Command {
	opts := toolchainsOptions{}
	cmd := &cobra.Command{
		Use:   "toolchains",
		Short: "List the known toolchains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToolchains(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.GOOS, "os", runtime.GOOS, "Operating system for default search paths")
	return cmd
}

func runToolchains(cmd *cobra.Command, opts toolchainsOptions) error {
	registry := crossprefs.DefaultRegistry()
	defaultName := registry.Default().Name

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPREFIX\tEXECUTABLE\tDEFAULT SEARCH PATH")
	for _, def := range registry.List() {
		name := def.Name
		if name == defaultName {
			name += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, def.Prefix, def.Executable(opts.GOOS), valueOrDash(def.DefaultSearchPath(opts.GOOS)))
	}
	return w.Flush()
}
