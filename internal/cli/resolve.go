package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/crossprefs"
)

type resolveOptions struct {
	DryRun  bool
	Require []string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve build tools and toolchain paths and save them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the resolution without saving the state file")
	cmd.Flags().StringSliceVar(&opts.Require, "require", nil, "Fail unless these toolchains resolve")
	return cmd
}

func runResolve(cmd *cobra.Command, opts resolveOptions) error {
	tree := crossprefs.NewTree()
	initializer, err := crossprefs.NewBuilder().
		WithTree(tree).
		WithLogger(log.Logger).
		Build()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid preference layout").
			WithCause(err)
	}

	registry := crossprefs.DefaultRegistry()
	loadOpts := loadOptions(cmd, registry, initializer.Namespaces())

	res, _, err := crossprefs.Bootstrap(initializer, loadOpts)
	if err != nil {
		if !errors.Is(err, crossprefs.ErrFileNotFound) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to load default preferences").
				WithCause(err)
		}
		log.Debug().Err(err).Msg("some preference files are missing")
	}

	if !opts.DryRun {
		if err := saveState(tree, viper.GetString("state")); err != nil {
			return err
		}
	}

	if err := printResolution(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	for _, name := range opts.Require {
		tc, ok := res.Toolchain(name)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown toolchain %q", name))
		}
		if tc.Path == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("toolchain not resolved: %s", name))
		}
	}
	return nil
}

func printResolution(out io.Writer, res crossprefs.Resolution) error {
	fmt.Fprintf(out, "build tools: %s (%s)\n", valueOrDash(res.BuildTools.Value), res.BuildTools.Origin)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOLCHAIN\tORIGIN\tPATH\tSEARCH PATH")
	for _, tc := range res.Toolchains {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tc.Name, tc.Origin, valueOrDash(tc.Path), valueOrDash(tc.SearchPath))
	}
	return w.Flush()
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
