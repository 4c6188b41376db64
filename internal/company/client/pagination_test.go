package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		page    int
		perPage int
		want    Window
	}{
		{"empty list has one page", 0, 1, 12, Window{Start: 0, End: 0, Page: 1, TotalPages: 1}},
		{"first page", 30, 1, 12, Window{Start: 0, End: 12, Page: 1, TotalPages: 3}},
		{"last partial page", 30, 3, 12, Window{Start: 24, End: 30, Page: 3, TotalPages: 3}},
		{"exact multiple", 24, 2, 12, Window{Start: 12, End: 24, Page: 2, TotalPages: 2}},
		{"page past the end is clamped", 30, 9, 12, Window{Start: 24, End: 30, Page: 3, TotalPages: 3}},
		{"page below one is clamped", 30, 0, 12, Window{Start: 0, End: 12, Page: 1, TotalPages: 3}},
		{"default page size", 13, 2, 0, Window{Start: 12, End: 13, Page: 2, TotalPages: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(tt.total, tt.page, tt.perPage))
		})
	}
}

func TestPageOf(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, w := PageOf(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, 3, w.TotalPages)

	page, _ = PageOf([]int{}, 5, 2)
	assert.Empty(t, page)
}
