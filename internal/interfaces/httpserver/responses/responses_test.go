package responses

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/query"
)

func TestFromPageNeverNull(t *testing.T) {
	body, err := json.Marshal(FromPage(query.Page[string]{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"has_more":false}`, string(body))

	body, err = json.Marshal(FromPage(query.Page[string]{Data: []string{"a"}, HasMore: true, NextCursor: "a"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":["a"],"has_more":true,"next_cursor":"a"}`, string(body))
}
