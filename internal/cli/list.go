package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/jotter/internal/view"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		search string
		page   int
		all    bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notes, freshest first",
		Long: `List prints one page of notes, most recently updated first. --search keeps
notes whose title or content contains the text, ignoring case. Pages past
the end show the last page.`,
		Example: `  jotter list
  jotter list --page 2
  jotter list --search groceries
  jotter list --all --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			if all {
				notes, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				notes = view.Filter(notes, search)
				if a.flags.jsonMode {
					return printJSON(out, notes)
				}
				writeTable(out, notes)
				return nil
			}

			state := view.NewState().WithSearch(search).WithPage(page)
			r, err := svc.View(cmd.Context(), state)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(out, r)
			}
			writeTable(out, r.Notes)
			fmt.Fprintf(out, "\nPage %d of %d (%d %s)\n", r.Page, r.TotalPages, r.Total, plural(r.Total, "note"))
			if r.HasNext {
				next := state.Next(r)
				fmt.Fprintf(out, "Next: jotter list --page %d%s\n", next.Page, searchFlag(search))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only notes containing this text")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to show")
	cmd.Flags().BoolVar(&all, "all", false, "show every matching note without paging")
	return cmd
}

func writeTable(w io.Writer, notes []types.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCONTENT\tUPDATED")
	for _, n := range notes {
		title := summary(n.Title, 30)
		if n.Image != "" {
			title += " [img]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", n.ID, title, summary(n.Content, 40), humanize.Time(n.UpdatedAt))
	}
	tw.Flush()
}

func searchFlag(search string) string {
	if search == "" {
		return ""
	}
	return fmt.Sprintf(" --search %q", search)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
