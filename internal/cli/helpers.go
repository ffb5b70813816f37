package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// maxImageBytes caps image files read from disk.
const maxImageBytes = 16 << 20

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("%s expects %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

// anyChanged reports whether any of the named flags was set on the command
// line.
func anyChanged(fs *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if fs.Changed(name) {
			return true
		}
	}
	return false
}

// parseID parses a note id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid note id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printNote writes a note in the long human format used by show.
func printNote(w io.Writer, n types.Note) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "#%d %s\n", n.ID, title)
	fmt.Fprintf(w, "created %s, updated %s\n", n.CreatedAt.Local().Format("2006-01-02 15:04"), humanize.Time(n.UpdatedAt))
	if n.Image != "" {
		fmt.Fprintf(w, "image: %s (%s)\n", imageKind(n.Image), humanize.Bytes(uint64(len(n.Image))))
	}
	if n.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, n.Content)
	}
}

// summary returns the first line of s cut to limit runes.
func summary(s string, limit int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// readImage loads path as a data URL. "" returns "".
func readImage(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", usagef("open image: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", usagef("image %s is larger than %s", path, humanize.Bytes(maxImageBytes))
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", usagef("%s is not an image (detected %s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// imageKind returns the media type of a data URL.
func imageKind(dataURL string) string {
	kind, _, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ";")
	if !ok {
		return "image"
	}
	return kind
}
