package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Pagination{Limit: 500}.Normalize(OrderDesc)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, OrderDesc, p.Order)

	p = Pagination{Order: OrderAsc}.Normalize(OrderDesc)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, OrderAsc, p.Order)
}

func TestNewPage(t *testing.T) {
	id := func(s string) string { return s }

	page := NewPage([]string{"a", "b", "c"}, 2, id)
	assert.Equal(t, []string{"a", "b"}, page.Data)
	assert.True(t, page.HasMore)
	assert.Equal(t, "b", page.NextCursor)

	page = NewPage([]string{"a"}, 2, id)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)

	empty := NewPage[string](nil, 2, id)
	assert.NotNil(t, empty.Data)
}
