package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/crossprefs"
)

type watchOptions struct {
	PollInterval time.Duration
	Debounce     time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Resolve, then keep the state in sync with the defaults files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", crossprefs.DefaultPollInterval, "How often the defaults files are checked")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", crossprefs.DefaultDebounce, "Quiet period before a reload")
	return cmd
}

func runWatch(cmd *cobra.Command, opts watchOptions) error {
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

	loadOpts := loadOptions(cmd, crossprefs.DefaultRegistry(), initializer.Namespaces())
	res, loader, err := crossprefs.Bootstrap(initializer, loadOpts)
	if err != nil && !errors.Is(err, crossprefs.ErrFileNotFound) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to load default preferences").
			WithCause(err)
	}

	state := viper.GetString("state")
	if err := saveState(tree, state); err != nil {
		return err
	}
	if err := printResolution(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	wopts := crossprefs.DefaultWatchOptions()
	wopts.PollInterval = opts.PollInterval
	wopts.Debounce = opts.Debounce
	watcher, err := crossprefs.NewWatcher(tree, loader, wopts, log.Logger)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create watcher").
			WithCause(err)
	}
	if len(watcher.Files()) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("nothing to watch, pass --plugin-defaults or --product")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher.Start(ctx)
	defer watcher.Stop()
	changes := watcher.Subscribe()
	log.Info().Strs("files", watcher.Files()).Msg("watching defaults files")

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case path, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if err := saveState(tree, state); err != nil {
				return err
			}
		}
	}
}

func saveState(tree *crossprefs.Tree, state string) error {
	if err := tree.Save(state); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to save preference state").
			WithCause(err)
	}
	log.Debug().Str("path", state).Msg("preference state saved")
	return nil
}
