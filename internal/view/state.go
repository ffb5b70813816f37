package view

import "github.com/mesh-intelligence/jotter/pkg/types"

// State is the search text and current page a user is looking at.
type State struct {
	Search string `json:"search"`
	Page   int    `json:"page"`
}

// NewState returns the initial state: page 1, no search.
func NewState() State {
	return State{Page: 1}
}

// WithSearch sets the search text and returns to page 1.
func (s State) WithSearch(search string) State {
	return State{Search: search, Page: 1}
}

// WithPage moves to page. Clamping happens in Apply.
func (s State) WithPage(page int) State {
	s.Page = page
	return s
}

// Next moves one page forward when r has a next page.
func (s State) Next(r types.Page) State {
	if r.HasNext {
		s.Page = r.Page + 1
	}
	return s
}

// Prev moves one page back when r has a previous page.
func (s State) Prev(r types.Page) State {
	if r.HasPrev {
		s.Page = r.Page - 1
	}
	return s
}

// Reset clears the search and returns to page 1.
func (s State) Reset() State {
	return NewState()
}

// Query builds the query for this state.
func (s State) Query(pageSize int) Query {
	return Query{Search: s.Search, Page: s.Page, PageSize: pageSize}
}
