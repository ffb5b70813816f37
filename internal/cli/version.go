package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/pkg/jotter"
)

const modulePath = "github.com/mesh-intelligence/jotter"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jotter version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "jotter v%s\nmodule: %s\n", jotter.Version, modulePath)
			return nil
		},
	}
}
