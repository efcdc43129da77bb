package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPagination(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		p       Paging
		count   int
		pages   int
		hasNext bool
		hasPrev bool
	}{
		{"empty", 0, Paging{Page: 1, PerPage: 20}, 0, 1, false, false},
		{"first of three", 45, Paging{Page: 1, PerPage: 20}, 20, 3, true, false},
		{"last page", 45, Paging{Page: 3, PerPage: 20}, 5, 3, false, true},
		{"zero per page falls back", 30, Paging{Page: 1}, 20, 2, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := BuildPagination(tt.total, tt.p, tt.count)
			assert.Equal(t, tt.pages, pg.TotalPages)
			assert.Equal(t, tt.hasNext, pg.HasNext)
			assert.Equal(t, tt.hasPrev, pg.HasPrev)
			assert.Equal(t, tt.count, pg.Count)
			assert.Equal(t, tt.total, pg.Total)
		})
	}
}
