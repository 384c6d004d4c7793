package idgen

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsPrefixedAndSortable(t *testing.T) {
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, New(PrefixPost))
	}

	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, "pst_"))
		assert.Equal(t, strings.ToLower(id), id)
		assert.True(t, IsValid(PrefixPost, id), id)
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids generated in sequence must sort in sequence")
}

func TestParseRejectsWrongPrefix(t *testing.T) {
	id := New(PrefixChannel)
	_, err := Parse(PrefixPost, id)
	require.Error(t, err)
	assert.False(t, IsValid(PrefixChannel, "chn_not-a-ulid"))
}

func TestGenerateSecureID(t *testing.T) {
	id, err := GenerateSecureID("sub", 16)
	require.NoError(t, err)
	assert.Len(t, id, len("sub_")+16)
	assert.Regexp(t, `^sub_[0-9a-z]{16}$`, id)
}
