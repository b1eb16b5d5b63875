// Package cli implements the rfscope command line tool.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RFSCOPE"

// app carries state shared by every subcommand.
type app struct {
	v            *viper.Viper
	configFile   string
	logLevel     string
	outputFormat string
	verbose      bool
}

// Execute runs the CLI with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with a private viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "rfscope",
		Short: "RF spectral analysis toolkit",
		Long: `rfscope plans RBW-driven captures, estimates Welch power spectral
densities from IQ recordings and moves spectra around in the compact
zlib+npy envelope.

Flags can also be set in $HOME/.config/rfscope/rfscope.yaml or through
RFSCOPE_<FLAG> environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			if err := bindFlags(cmd, a.v); err != nil {
				return err
			}
			return a.initLogging(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default is $HOME/.config/rfscope/rfscope.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&a.outputFormat, "output", "o", "table", "output format (json, table, yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newPlanCmd(a),
		newFFTSizeCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newInspectCmd(a),
		newWelchCmd(a),
		newPostCmd(a),
	)
	return root
}

// initConfig reads the config file, if any, and enables environment lookup
func (a *app) initConfig() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "rfscope"))
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName("rfscope")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && a.configFile != "" {
			return fmt.Errorf("failed to read config %s: %w", a.configFile, err)
		}
	}
	return nil
}

func (a *app) initLogging(w io.Writer) error {
	level, err := zerolog.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	if a.v.ConfigFileUsed() != "" {
		log.Debug().Str("file", a.v.ConfigFileUsed()).Msg("Using config file")
	}
	return nil
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		envVar := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, envVar); err != nil {
			lastErr = err
		}
	})

	return lastErr
}
