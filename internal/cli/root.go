// Package cli implements the jotter command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/jotter/internal/paths"
	"github.com/mesh-intelligence/jotter/pkg/jotter"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values for one invocation.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	server    string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	flags     rootFlags
	v         *viper.Viper
	configDir string
	settings  Settings
	logger    *slog.Logger
	stderr    io.Writer
}

// NewRootCmd creates the top-level "jotter" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: slog.Default(), stderr: os.Stderr}

	root := &cobra.Command{
		Use:     "jotter",
		Short:   "A small personal notes keeper",
		Long:    "Jotter keeps short notes with optional images in a local SQLite database\n(or a JSON file), and can serve them over HTTP.",
		Version: jotter.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/jotter)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/jotter)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite or blob")
	pf.StringVar(&a.flags.server, "server", "", "talk to a jotter server at this URL instead of local storage")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug logging")

	_ = a.v.BindPFlag(cfgKeyBackend, pf.Lookup("backend"))
	_ = a.v.BindPFlag(cfgKeyDataDir, pf.Lookup("data-dir"))
	_ = a.v.BindPFlag(cfgKeyServer, pf.Lookup("server"))

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode classifies err: problems with the user's input exit 1,
// everything else exits 2.
func exitCode(err error) int {
	var usage *usageError
	switch {
	case errors.As(err, &usage),
		strings.HasPrefix(err.Error(), "unknown command"),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrFormat),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrDriverUnknown),
		errors.Is(err, types.ErrPageSizeInvalid):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError marks a bad argument or flag.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// setup configures logging and loads configuration before any subcommand
// runs.
func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.stderr = cmd.ErrOrStderr()
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.configDir = configDir

	if err := loadConfig(a.v, configDir); err != nil {
		return err
	}
	settings, err := readSettings(a.v, a.flags.dataDir)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger.Debug("configuration loaded",
		"config_dir", configDir,
		"data_dir", settings.DataDir,
		"backend", settings.Backend)
	return nil
}
