package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/internal/storage"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize jotter storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, and initialize the storage backend.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	cfg := defaultConfig()
	if a.flags.dataDir != "" {
		cfg.DataDir = a.settings.DataDir
	}
	if a.flags.backend != "" {
		cfg.Backend = a.settings.Backend
	}
	created, err := writeConfigIfMissing(a.configDir, cfg)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	st, err := storage.Open(a.settings.StorageConfig(), storage.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	kind := st.Kind
	if err := st.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"config_dir":     a.configDir,
			"data_dir":       a.settings.DataDir,
			"backend":        kind,
			"config_created": created,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Jotter initialized successfully")
	fmt.Fprintf(out, "  config:  %s\n", a.configDir)
	fmt.Fprintf(out, "  data:    %s\n", a.settings.DataDir)
	fmt.Fprintf(out, "  backend: %s\n", kind)
	return nil
}
