// Package pagination parses page requests and shapes paged responses.
package pagination

import (
	"net/url"
	"strconv"
)

// Limits bound page sizes.
type Limits struct {
	DefaultSize int `toml:"default_page_size"`
	MaxSize     int `toml:"max_page_size"`
}

// DefaultLimits is used when a caller supplies zero limits.
var DefaultLimits = Limits{DefaultSize: 20, MaxSize: 100}

// Request is one page of a listing, with an optional search term and sort.
type Request struct {
	Page   int
	Size   int
	Search string
	Sort   string
}

// FromQuery reads page, page_size, search and sort from URL values and
// normalizes them against limits.
func FromQuery(values url.Values, limits Limits) Request {
	page, _ := strconv.Atoi(values.Get("page"))
	size, _ := strconv.Atoi(values.Get("page_size"))

	r := Request{
		Page:   page,
		Size:   size,
		Search: values.Get("search"),
		Sort:   values.Get("sort"),
	}
	r.Normalize(limits)
	return r
}

// Normalize clamps Page to >= 1 and Size to [1, MaxSize].
func (r *Request) Normalize(limits Limits) {
	if limits.DefaultSize <= 0 || limits.MaxSize <= 0 {
		limits = DefaultLimits
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = limits.DefaultSize
	}
	if r.Size > limits.MaxSize {
		r.Size = limits.MaxSize
	}
}

// Result is a page of items with totals.
type Result[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewResult wraps items for r. Data is never nil.
func NewResult[T any](items []T, total int, r Request) Result[T] {
	pages := 1
	if r.Size > 0 && total > 0 {
		pages = (total + r.Size - 1) / r.Size
	}
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Data:       items,
		Total:      total,
		Page:       r.Page,
		PageSize:   r.Size,
		TotalPages: pages,
	}
}
