package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

func TestParseExtractionSwedish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want crawler.Swedish
	}{
		{`"true"`, crawler.SwedishTrue},
		{`"false"`, crawler.SwedishFalse},
		{`"likely"`, crawler.SwedishLikely},
		{`"null"`, crawler.SwedishUnknown},
		{`"yes"`, crawler.SwedishUnknown},
		{`null`, crawler.SwedishUnknown},
		{`true`, crawler.SwedishUnknown},
		{`false`, crawler.SwedishUnknown},
		{`1`, crawler.SwedishUnknown},
	}
	for _, tt := range tests {
		ex, err := ParseExtraction(`{"swedish": ` + tt.raw + `, "skills": []}`)
		require.NoError(t, err, tt.raw)
		require.Equal(t, tt.want, ex.Swedish, tt.raw)
	}

	ex, err := ParseExtraction(`{"skills": []}`)
	require.NoError(t, err)
	require.Equal(t, crawler.SwedishUnknown, ex.Swedish)
}

func TestParseExtractionExperience(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"experience": 2.6}`)
	require.NoError(t, err)
	require.Equal(t, 3, *ex.Experience)

	ex, err = ParseExtraction(`{"experience": -1}`)
	require.NoError(t, err)
	require.Nil(t, ex.Experience)

	ex, err = ParseExtraction(`{"experience": null, "education": "  "}`)
	require.NoError(t, err)
	require.Nil(t, ex.Experience)
	require.Nil(t, ex.Education)
	require.NotNil(t, ex.Skills)
}

func TestParseExtractionRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseExtraction("```json")
	require.Error(t, err)
}
