package types

import "errors"

// Error kinds name the domain sentinels on the wire, so a remote caller can
// tell apart errors that share an HTTP status.
const (
	KindValidation  = "validation"
	KindFormat      = "format"
	KindNotFound    = "not_found"
	KindPersistence = "persistence"
)

var kinds = []struct {
	kind string
	err  error
}{
	{KindValidation, ErrValidation},
	{KindFormat, ErrFormat},
	{KindNotFound, ErrNotFound},
	{KindPersistence, ErrPersistence},
}

// KindOf returns the kind of the first domain sentinel err wraps, or "".
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// ErrorOfKind returns the sentinel for kind, or nil for an unknown kind.
func ErrorOfKind(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
