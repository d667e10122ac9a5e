package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch(t *testing.T) {
	queries, err := ParseBatch(strings.NewReader(`
		[
			{"name": "top-pages", "dimensions": "pagePath", "metrics": "sessions", "limit": "10"},
			{"metrics": ["totalUsers"], "orderBy": "totalUsers", "asc": true}
		]
	`))
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Equal(t, "top-pages", queries[0].Name)
	assert.Equal(t, NumberText("10"), queries[0].Limit)
	assert.Equal(t, "", queries[1].Name)
	assert.True(t, queries[1].Ascending)
}

func TestParseBatchMalformed(t *testing.T) {
	for _, input := range []string{
		`{"name": "not-an-array"}`,
		`"queries"`,
		``,
		`[{"name": }]`,
		`[{"limit": {"nested": true}}]`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseBatch(strings.NewReader(input))
			require.ErrorIs(t, err, ErrMalformedBatchInput)
		})
	}
}
