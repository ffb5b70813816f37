package types

// Page is one page of the filtered, freshest-first note collection.
type Page struct {
	Notes      []Note `json:"notes"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Total      int    `json:"total"`
	HasPrev    bool   `json:"hasPrev"`
	HasNext    bool   `json:"hasNext"`
}
