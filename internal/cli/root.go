package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "CROSSPREFS"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "crossprefs",
		Short:         "Resolve default preferences for ARM cross toolchains",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().String("state", defaultStatePath(), "Saved preference tree (TOML)")
	cmd.PersistentFlags().String("plugin-defaults", "", "Plugin defaults file")
	cmd.PersistentFlags().String("product", "", "Product customization file")
	cmd.PersistentFlags().StringArray("pref", nil, "Override as namespace/key=value (repeatable)")
	cmd.PersistentFlags().String("env-prefix", "CROSSPREFS_", "Prefix of preference environment variables")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("state", cmd.PersistentFlags().Lookup("state"))
	_ = viper.BindPFlag("plugin_defaults", cmd.PersistentFlags().Lookup("plugin-defaults"))
	_ = viper.BindPFlag("product", cmd.PersistentFlags().Lookup("product"))
	_ = viper.BindPFlag("env_prefix", cmd.PersistentFlags().Lookup("env-prefix"))

	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newToolchainsCommand())
	cmd.AddCommand(newDiscoverCommand())
	cmd.AddCommand(newWatchCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("crossprefs")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/crossprefs")
	// A missing default config file is fine
	_ = viper.ReadInConfig()
	return nil
}

// setupLogging writes human-readable logs to stderr. Unknown levels fall back to info.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "crossprefs.toml"
	}
	return filepath.Join(dir, "crossprefs", "defaults.toml")
}

// exitCodes maps error codes to process exit status. A failed precondition is
// only raised for a required toolchain left unresolved.
var exitCodes = map[errbuilder.ErrCode]int{
	errbuilder.CodeInvalidArgument:    2,
	errbuilder.CodeFailedPrecondition: 4,
	errbuilder.CodeNotFound:           5,
	errbuilder.CodeInternal:           5,
}

func exitCodeForError(err error) int {
	if code, ok := exitCodes[errbuilder.CodeOf(err)]; ok {
		return code
	}
	return 1
}

// flagOrConfig returns the flag value when it was set on the command line,
// otherwise the viper value under key when non-empty.
func flagOrConfig(cmd *cobra.Command, flagName, key, value string) string {
	if cmd != nil {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			return value
		}
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return value
}
