package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/internal/notes"
	"github.com/mesh-intelligence/jotter/internal/server"
	"github.com/mesh-intelligence/jotter/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve notes over HTTP",
		Long: `Serve starts the notes HTTP API on the configured listen address and
runs until interrupted. With --static, the given directory is served at /.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :3000)")
	cmd.Flags().String("static", "", "directory of static UI files to serve at /")
	cmd.Flags().String("cors-origins", "", "comma-separated allowed CORS origins (default *)")
	_ = a.v.BindPFlag(cfgKeyListen, cmd.Flags().Lookup("listen"))
	_ = a.v.BindPFlag(cfgKeyStaticDir, cmd.Flags().Lookup("static"))
	_ = a.v.BindPFlag(cfgKeyCORSOrigins, cmd.Flags().Lookup("cors-origins"))
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	if a.settings.Server != "" {
		return usagef("serve always uses local storage; drop --server")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := storage.Open(a.settings.StorageConfig(), storage.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer st.Detach()

	store, err := notes.Open(ctx, st, notes.WithLogger(a.logger))
	if err != nil {
		return err
	}

	srv := server.New(store, server.Config{
		Listen:      a.settings.Listen,
		StaticDir:   a.settings.StaticDir,
		CORSOrigins: a.settings.CORSOrigins,
		PageSize:    a.settings.PageSize,
		Backend:     st.Kind,
	}, server.WithLogger(a.logger), server.WithAccessLog(a.stderr))

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
