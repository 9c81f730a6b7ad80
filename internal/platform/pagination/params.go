// Package pagination extracts page-numbered listing parameters from request
// query strings.
package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits page_size.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps the supported page_size to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPage     = errors.New("pagination: invalid page")
	ErrInvalidPageSize = errors.New("pagination: invalid page_size")
)

// Params bundles the page-numbered pagination values extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse extracts page and page_size from the query values, applying defaults
// and caps. Absent values fall back; malformed or non-positive values are
// rejected rather than silently clamped.
func Parse(query url.Values, opts Options) (Params, error) {
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}

	params := Params{Page: 1, PageSize: defaultSize}

	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPage, raw)
		}
		params.Page = page
	}

	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		if size > maxSize {
			size = maxSize
		}
		params.PageSize = size
	}

	return params, nil
}
