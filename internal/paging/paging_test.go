package paging

import (
	"errors"
	"math"
	"net/url"
	"testing"
)

func TestNormalize(t *testing.T) {
	limits := Limits{DefaultSize: 20, MaxSize: 50}
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{name: "zero value", in: Params{}, want: Params{Number: 1, Size: 20}},
		{name: "negative number", in: Params{Number: -3, Size: 5}, want: Params{Number: 1, Size: 5}},
		{name: "size above max", in: Params{Number: 2, Size: 500}, want: Params{Number: 2, Size: 50}},
		{name: "in range", in: Params{Number: 3, Size: 10}, want: Params{Number: 3, Size: 10}},
		{name: "number past offset range", in: Params{Number: 461168601842738792, Size: 20}, want: Params{Number: math.MaxInt / 20, Size: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limits.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}

	if got := (Limits{}).Normalize(Params{}); got.Size != DefaultSize {
		t.Errorf("zero Limits should fall back to DefaultSize, got %d", got.Size)
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Number: 3, Size: 10}).Offset(); got != 20 {
		t.Errorf("Offset() = %d, want 20", got)
	}
	if got := (Params{Number: 0, Size: 10}).Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0", got)
	}
	if got := (Params{Number: math.MaxInt, Size: 20}).Offset(); got < 0 {
		t.Errorf("Offset() = %d, must not overflow", got)
	}
	huge := Limits{DefaultSize: 20, MaxSize: 100}.Normalize(Params{Number: math.MaxInt, Size: 100})
	if got := huge.Offset(); got < 0 || got > math.MaxInt-100 {
		t.Errorf("Offset() of normalized params = %d", got)
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name       string
		items      []int
		params     Params
		total      int
		wantPages  int
		wantPrev   bool
		wantNext   bool
		wantLength int
	}{
		{name: "empty", items: nil, params: Params{Number: 1, Size: 10}, total: 0, wantPages: 0, wantLength: 0},
		{name: "single page", items: []int{1, 2, 3, 4, 5}, params: Params{Number: 1, Size: 10}, total: 5, wantPages: 1, wantLength: 5},
		{name: "first of three", items: []int{1, 2}, params: Params{Number: 1, Size: 2}, total: 5, wantPages: 3, wantNext: true, wantLength: 2},
		{name: "middle", items: []int{3, 4}, params: Params{Number: 2, Size: 2}, total: 5, wantPages: 3, wantPrev: true, wantNext: true, wantLength: 2},
		{name: "last", items: []int{5}, params: Params{Number: 3, Size: 2}, total: 5, wantPages: 3, wantPrev: true, wantLength: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewPage(tt.items, tt.params, tt.total)
			if page.TotalPages != tt.wantPages || page.HasPrevious != tt.wantPrev || page.HasNext != tt.wantNext {
				t.Errorf("NewPage() = %+v", page)
			}
			if len(page.Items) != tt.wantLength || page.Items == nil {
				t.Errorf("items = %v, want %d non-nil items", page.Items, tt.wantLength)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	p, err := ParseQuery(url.Values{"pageNumber": {"2"}, "pageSize": {"15"}})
	if err != nil || p != (Params{Number: 2, Size: 15}) {
		t.Fatalf("ParseQuery() = %+v, %v", p, err)
	}

	p, err = ParseQuery(url.Values{})
	if err != nil || p != (Params{}) {
		t.Fatalf("ParseQuery(empty) = %+v, %v", p, err)
	}

	_, err = ParseQuery(url.Values{"pageSize": {"ten"}})
	var paramErr *ParamError
	if !errors.As(err, &paramErr) || paramErr.Param != "pageSize" || !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ParamError for pageSize, got %v", err)
	}
}

func TestMap(t *testing.T) {
	page := NewPage([]int{1, 2}, Params{Number: 1, Size: 2}, 3)
	mapped := Map(page, func(v int) string { return string(rune('a' + v)) })
	if mapped.Items[0] != "b" || mapped.TotalCount != 3 || !mapped.HasNext {
		t.Fatalf("Map() = %+v", mapped)
	}
}
