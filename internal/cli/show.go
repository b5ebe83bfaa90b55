package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/crossprefs"
)

type showOptions struct {
	Toolchain string
}

func newShowCommand() *cobra.Command {
	opts := showOptions{}
	cmd := &cobra.Command{
		Use:   "show [namespace]",
		Short: "Print the values stored in the preference state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Toolchain, "toolchain", "", "Decode the settings of one toolchain")
	return cmd
}

func runShow(cmd *cobra.Command, opts showOptions, args []string) error {
	state := viper.GetString("state")
	tree, err := crossprefs.LoadTree(state)
	if err != nil {
		code := errbuilder.CodeInvalidArgument
		if errors.Is(err, crossprefs.ErrFileNotFound) {
			code = errbuilder.CodeNotFound
		}
		return errbuilder.New().
			WithCode(code).
			WithMsg("failed to read preference state").
			WithCause(err)
	}

	out := cmd.OutOrStdout()

	if opts.Toolchain != "" {
		ns := crossprefs.DefaultCurrentNamespace
		if len(args) == 1 {
			ns = args[0]
		}
		settings, err := tree.Toolchain(ns, opts.Toolchain)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to decode toolchain settings").
				WithCause(err)
		}
		printToolchainSettings(out, opts.Toolchain, settings)
		return nil
	}

	namespaces := tree.Namespaces()
	if len(args) == 1 {
		if !tree.Materialized(args[0]) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("namespace %q not in %s", args[0], state))
		}
		namespaces = []string{args[0]}
	}

	for _, ns := range namespaces {
		fmt.Fprintf(out, "[%s]\n", ns)
		node := tree.Store(ns)
		for _, key := range node.Keys() {
			fmt.Fprintf(out, "  %s = %s\n", key, node.Get(key))
		}
	}
	return nil
}

func printToolchainSettings(out io.Writer, name string, s crossprefs.ToolchainSettings) {
	fmt.Fprintf(out, "toolchain: %s\n", name)
	fmt.Fprintf(out, "path: %s\n", valueOrDash(s.Path))
	fmt.Fprintf(out, "search path: %s\n", valueOrDash(s.SearchPath))
	for _, entry := range s.SearchPaths {
		fmt.Fprintf(out, "  - %s\n", entry)
	}
	oses := make([]string, 0, len(s.OSSearchPath))
	for goos := range s.OSSearchPath {
		oses = append(oses, goos)
	}
	sort.Strings(oses)
	for _, goos := range oses {
		fmt.Fprintf(out, "search path (%s): %s\n", goos, s.OSSearchPath[goos])
	}
}
