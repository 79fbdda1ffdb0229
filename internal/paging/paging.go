// Package paging holds page-number pagination shared by every list endpoint.
package paging

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSize and MaxSize are used when the caller does not configure limits.
const (
	DefaultSize = 20
	MaxSize     = 100
)

var ErrInvalidParam = errors.New("invalid paging parameter")

// Limits bounds the page size a caller may request.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

func DefaultLimits() Limits {
	return Limits{DefaultSize: DefaultSize, MaxSize: MaxSize}
}

// Params is a 1-based page number and a page size.
type Params struct {
	Number int
	Size   int
}

// Normalize fills in defaults and clamps values into range. The zero Params is valid
// and means "first page, default size". The page number is capped so Offset cannot
// overflow.
func (l Limits) Normalize(p Params) Params {
	if l.DefaultSize <= 0 {
		l.DefaultSize = DefaultSize
	}
	if l.MaxSize <= 0 {
		l.MaxSize = MaxSize
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = l.DefaultSize
	}
	if p.Size > l.MaxSize {
		p.Size = l.MaxSize
	}
	if maxNumber := math.MaxInt / p.Size; p.Number > maxNumber {
		p.Number = maxNumber
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p Params) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// ParseQuery reads pageNumber and pageSize. Missing values stay zero; anything that is
// not an integer is an error naming the parameter.
func ParseQuery(values url.Values) (Params, error) {
	var p Params
	var err error
	if p.Number, err = parseInt(values, "pageNumber"); err != nil {
		return Params{}, err
	}
	if p.Size, err = parseInt(values, "pageSize"); err != nil {
		return Params{}, err
	}
	return p, nil
}

func parseInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Param: key}
	}
	return n, nil
}

// ParamError names the query parameter that could not be parsed.
type ParamError struct {
	Param string
}

func (e *ParamError) Error() string {
	return e.Param + " must be an integer"
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParam
}

// Page is one page of results with count metadata.
type Page[T any] struct {
	Items       []T
	Number      int
	Size        int
	TotalCount  int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
}

// NewPage builds the envelope for items fetched with p out of total rows.
func NewPage[T any](items []T, p Params, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if p.Size > 0 {
		totalPages = (total + p.Size - 1) / p.Size
	}
	return Page[T]{
		Items:       items,
		Number:      p.Number,
		Size:        p.Size,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasPrevious: p.Number > 1,
		HasNext:     p.Number < totalPages,
	}
}

// Map converts the items of a page and keeps its metadata.
func Map[T, U any](page Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(page.Items))
	for i, item := range page.Items {
		items[i] = fn(item)
	}
	return Page[U]{
		Items:       items,
		Number:      page.Number,
		Size:        page.Size,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		HasPrevious: page.HasPrevious,
		HasNext:     page.HasNext,
	}
}
