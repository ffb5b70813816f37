package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var title, content, image string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Long: `Add creates a note. A note needs a title or content (or both); surrounding
whitespace is trimmed. --image attaches an image file, stored inline.`,
		Example: `  jotter add --title "Groceries" --content "eggs, milk"
  jotter add --content "call the plumber"
  jotter add --title "Whiteboard" --image board.png`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(image)
			if err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			id, err := svc.Create(cmd.Context(), types.Draft{Title: title, Content: content, Image: img})
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created note %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "note content")
	cmd.Flags().StringVar(&image, "image", "", "image file to attach")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var title, content, image string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note",
		Long: `Edit changes the title, content or image of a note. Fields whose flag is
not given keep their current value. The image is only replaced, never removed.`,
		Example: `  jotter edit 3 --title "Groceries (Sat)"
  jotter edit 3 --content ""`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !anyChanged(flags, "title", "content", "image") {
				return usagef("nothing to change; pass --title, --content or --image")
			}
			img, err := readImage(image)
			if err != nil {
				return err
			}

			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			current, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			d := types.Draft{Title: current.Title, Content: current.Content, Image: img}
			if flags.Changed("title") {
				d.Title = title
			}
			if flags.Changed("content") {
				d.Content = content
			}
			if err := svc.Update(cmd.Context(), id, d); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"success": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new content")
	cmd.Flags().StringVar(&image, "image", "", "replacement image file")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a note",
		Long:    "Delete removes a note. Deleting a note that does not exist succeeds.",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"success": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %d\n", id)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one note",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			n, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), n)
			}
			printNote(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
