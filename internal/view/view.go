// Package view derives the visible page of notes from the full collection:
// search filter, freshest-first order and fixed-size pagination. Nothing in
// this package mutates its input.
package view

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Query selects a page of notes.
type Query struct {
	Search   string `json:"search"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Apply filters notes by q.Search, orders them freshest first and returns
// page q.Page. The page is clamped into [1, TotalPages]; TotalPages is at
// least 1 even when nothing matches. A PageSize below 1 means
// types.DefaultPageSize.
func Apply(notes []types.Note, q Query) types.Page {
	size := q.PageSize
	if size < 1 {
		size = types.DefaultPageSize
	}

	matched := Order(Filter(notes, q.Search))
	total := len(matched)
	pages := max(1, (total+size-1)/size)
	page := min(max(q.Page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)

	return types.Page{
		Notes:      append([]types.Note{}, matched[start:end]...),
		Page:       page,
		TotalPages: pages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}

// Filter returns the notes whose title or content contains search, compared
// with Unicode case folding. Surrounding whitespace in search is ignored; an
// empty search matches everything.
func Filter(notes []types.Note, search string) []types.Note {
	needle := fold(strings.TrimSpace(search))
	if needle == "" {
		return slices.Clone(notes)
	}
	out := make([]types.Note, 0, len(notes))
	for _, n := range notes {
		if Matches(n, needle) {
			out = append(out, n)
		}
	}
	return out
}

// Matches reports whether needle, already folded, occurs in n's title or
// content.
func Matches(n types.Note, needle string) bool {
	return strings.Contains(fold(n.Title), needle) || strings.Contains(fold(n.Content), needle)
}

// Order returns a copy of notes sorted by UpdatedAt descending, higher ID
// first on ties. The result is never nil.
func Order(notes []types.Note) []types.Note {
	out := append(make([]types.Note, 0, len(notes)), notes...)
	slices.SortStableFunc(out, func(a, b types.Note) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// fold returns s case-folded. A Caser is not safe for concurrent use, so
// each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
