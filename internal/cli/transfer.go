package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/internal/transfer"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all notes as JSON",
		Long: `Export writes every note as an indented JSON array ordered by id, to stdout
or to --output. The file can be read back with import.`,
		Example: `  jotter export > notes.json
  jotter export -o backup/notes.json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if output == "" || output == "-" {
				return svc.Export(cmd.Context(), cmd.OutOrStdout())
			}
			if err := writeFileWith(output, func(w io.Writer) error {
				return svc.Export(cmd.Context(), w)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported notes to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout (default "+transfer.FileName+" when a directory is given)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Read notes from a JSON export",
		Long: `Import reads a JSON array of notes. By default notes are merged by id: a
note with an existing id overwrites it, others are added. --replace discards
every current note first. A file that is not a JSON array of notes, or that
holds a note with neither title nor content, changes nothing.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := transfer.ModeMerge
			if replace {
				mode = transfer.ModeReplace
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return usagef("open %s: %v", args[0], err)
				}
				defer f.Close()
				in = f
			}

			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			n, err := svc.Import(cmd.Context(), in, mode)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"success": true, "imported": n, "mode": mode})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s (%s)\n", n, plural(n, "note"), mode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "discard existing notes before importing")
	return cmd
}

// writeFileWith writes path through fn, creating parent directories. A path
// naming an existing directory gets transfer.FileName appended.
func writeFileWith(path string, fn func(io.Writer) error) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, transfer.FileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
