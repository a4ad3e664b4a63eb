// Package main provides the vibe-roc command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/duckdb"
	"github.com/inodb/vibe-roc/internal/permute"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
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
	keyReverse      = "reverse"
	keyTop          = "plot_top_results"
	keyPermutations = "permutation_count"
	keySeed         = "seed"
	keyWorkers      = "workers"
	keyDB           = "db"
)

const configFileName = ".vibe-roc.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	logger  *zap.Logger
	cfgFile string
	verbose bool
}

func newApp(stdout, stderr io.Writer) *app {
	v := viper.New()
	v.SetDefault(keyReverse, false)
	v.SetDefault(keyTop, 20)
	v.SetDefault(keyPermutations, permute.DefaultPermutations)
	v.SetDefault(keySeed, permute.DefaultSeed)
	v.SetDefault(keyWorkers, 0)
	v.SetDefault(keyDB, "")

	v.SetEnvPrefix("VIBE_ROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &app{
		v:      v,
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop(),
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := a.newRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var uErr *usageError
	if errors.As(err, &uErr) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", uErr.command)
		return ExitUsage
	}
	printHint(stderr, err)
	return ExitError
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-roc",
		Short: "Gene-set discrimination scoring",
		Long: `vibe-roc scores how well each gene set of an enrichment score matrix separates
two phenotype classes: ROC/AUC with midrank ties, Youden-optimal thresholds with
MCC, Wilcoxon rank-sum tests and GSEA-style permutation significance.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return &usageError{command: cmd.CommandPath(), err: errors.New("a command is required")}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(a.stderr, a.verbose)
			return a.initConfig()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{command: cmd.CommandPath(), err: err}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/"+configFileName+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newScoreCmd(),
		a.newRunsCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)

	return root
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "vibe-roc version %s (%s) built %s\n", version, commit, date)
			return nil
		},
	}
}

// bindFlags binds config keys to the flags of the command being run.
func (a *app) bindFlags(cmd *cobra.Command, flags map[string]string) error {
	for key, name := range flags {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// configPath returns the config file in use, or "" when the home
// directory cannot be determined.
func (a *app) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configFileName)
}

// initConfig reads the config file if present. Flags and VIBE_ROC_*
// environment variables take precedence over it.
func (a *app) initConfig() error {
	path := a.configPath()
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Debug("no config file", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	a.logger.Debug("loaded config", zap.String("path", path))
	return nil
}

// newLogger builds a console logger on w.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	command string
	err     error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs wraps a positional argument validator so its failures exit
// with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{command: cmd.CommandPath(), err: err}
		}
		return nil
	}
}

func printHint(w io.Writer, err error) {
	var (
		formatErr   *dataset.InputFormatError
		mismatchErr *dataset.SampleMismatchError
		classErr    *dataset.InsufficientClassSizeError
	)
	switch {
	case errors.As(err, &formatErr):
		fmt.Fprintf(w, "Hint: Scores must be a GCT or tab-delimited matrix and labels a CLS or sample<TAB>class file\n")
	case errors.As(err, &mismatchErr):
		fmt.Fprintf(w, "Hint: Every score matrix sample needs a phenotype label\n")
	case errors.As(err, &classErr):
		fmt.Fprintf(w, "Hint: Each phenotype class needs at least %d samples\n", classErr.Min)
	case errors.Is(err, duckdb.ErrRunNotFound):
		fmt.Fprintf(w, "Hint: List stored runs with: vibe-roc runs list --db <path>\n")
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(w, "Hint: Check that the file path is correct\n")
	}
}
