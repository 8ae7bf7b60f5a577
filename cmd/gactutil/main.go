// Package main provides the gactutil command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Configuration keys.
const (
	keyLogLevel        = "log-level"
	keyQuiet           = "quiet"
	keyReportDelimiter = "filter.report-delimiter"
	keyHistoryDB       = "filter.history-db"
)

const configFileName = ".gactutil.yaml"

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func main() {
	os.Exit(Execute())
}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	return execute(NewRootCommand(), os.Stderr)
}

func execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return ExitFailure
	}
	return ExitSuccess
}

// app carries the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	logger     *zap.Logger
}

// NewRootCommand constructs the top-level command with all subcommands
// attached.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "gactutil",
		Short: "Filter VCF records with a configurable filter chain",
		Long: `gactutil runs VCF records through a chain of named filters declared in a
YAML configuration file and writes every record back with its FILTER column
updated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bindFlags(cmd); err != nil {
				return usageError(err)
			}
			if err := a.loadConfig(); err != nil {
				return usageError(err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), a.v.GetString(keyLogLevel), a.v.GetBool(keyQuiet))
			if err != nil {
				return usageError(err)
			}
			a.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "settings file (default ~/"+configFileName+")")
	cmd.PersistentFlags().String(keyLogLevel, "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolP(keyQuiet, "q", false, "only log errors")
	_ = a.v.BindPFlag(keyLogLevel, cmd.PersistentFlags().Lookup(keyLogLevel))
	_ = a.v.BindPFlag(keyQuiet, cmd.PersistentFlags().Lookup(keyQuiet))

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.AddCommand(a.newFilterCmd())
	cmd.AddCommand(a.newFiltersCmd())
	cmd.AddCommand(a.newHistoryCmd())
	cmd.AddCommand(a.newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// commandFlags maps subcommand flags to the settings they override.
var commandFlags = map[string]string{
	"history-db":       keyHistoryDB,
	"report-delimiter": keyReportDelimiter,
}

// bindFlags binds the flags of the command being run to their settings.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for name, key := range commandFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// loadConfig reads settings from the environment and the settings file.
// A missing default settings file is not an error.
func (a *app) loadConfig() error {
	a.v.SetDefault(keyLogLevel, "info")
	a.v.SetDefault(keyReportDelimiter, "tab")
	a.v.SetDefault(keyHistoryDB, "")

	a.v.SetEnvPrefix("GACTUTIL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", a.configFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	a.v.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(home)
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// configPath returns the settings file that config set writes to.
func (a *app) configPath() (string, error) {
	if f := a.v.ConfigFileUsed(); f != "" {
		return f, nil
	}
	if a.configFile != "" {
		return a.configFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configFileName), nil
}

// newLogger builds a console logger writing to w.
func newLogger(w io.Writer, level string, quiet bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
	}
	if quiet {
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
