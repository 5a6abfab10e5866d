package wifi

import (
	"fmt"
	"math"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// Window is the offset/limit slice of an ordered result set.
type Window struct {
	Offset int
	Limit  int
}

// Page is the envelope returned by every query.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// NewWindow validates page and pageSize and returns the matching window.
// page and pageSize below 1 are rejected, not clamped.
func NewWindow(page, pageSize int) (Window, error) {
	if page < 1 {
		return Window{}, &ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	if pageSize < 1 {
		return Window{}, &ValidationError{Field: "pageSize", Reason: "must be >= 1"}
	}
	if pageSize > MaxPageSize {
		return Window{}, &ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be <= %d", MaxPageSize)}
	}
	if page-1 > math.MaxInt32/pageSize {
		return Window{}, &ValidationError{Field: "page", Reason: "is too large"}
	}
	return Window{Offset: (page - 1) * pageSize, Limit: pageSize}, nil
}

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize < 1 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Paginate combines NewWindow and TotalPages.
func Paginate(total int64, page, pageSize int) (Window, int, error) {
	w, err := NewWindow(page, pageSize)
	if err != nil {
		return Window{}, 0, err
	}
	return w, TotalPages(total, pageSize), nil
}

// newPage builds the envelope for one fetched page. totalPages comes from
// Paginate so the envelope and the window always agree.
func newPage[T any](items []T, total int64, page, pageSize int) (*Page[T], error) {
	_, totalPages, err := Paginate(total, page, pageSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
