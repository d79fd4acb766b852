package taxonomy

import (
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/internal/util"
)

// Pagination defaults used when Options leaves them unset.
const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

// window is a validated limit/offset pair.
type window struct {
	limit  int
	offset int
}

// newWindow validates the requested page. A nil limit takes the default;
// limits above max are capped.
func newWindow(limit *int, offset int, defaultLimit, maxLimit int) (window, error) {
	w := window{limit: defaultLimit, offset: offset}
	if limit != nil {
		if *limit < 0 {
			return window{}, errors.NewInvalidParams("'limit' must be non-negative, got %d", *limit)
		}
		w.limit = *limit
	}
	if offset < 0 {
		return window{}, errors.NewInvalidParams("'offset' must be non-negative, got %d", offset)
	}
	w.limit = util.Clamp(w.limit, 0, maxLimit)
	return w, nil
}

// slice returns the page of items selected by w. Offsets past the end give
// an empty page.
func slice[T any](items []T, w window) []T {
	if w.offset >= len(items) {
		return nil
	}
	return items[w.offset:util.Clamp(w.offset+w.limit, w.offset, len(items))]
}
