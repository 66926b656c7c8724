package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestDedupeSources(t *testing.T) {
	in := []Source{
		{Title: "NSCDC Update", URL: "https://nscdc.gov.ng/a"},
		{Title: "", URL: "https://interior.gov.ng/b"},
		{Title: "Repeat", URL: "https://nscdc.gov.ng/a"},
		{Title: "", URL: ""},
		{Title: "Third", URL: "https://iso.org/c"},
	}

	out := dedupeSources(in)
	require.Len(t, out, 3)
	assert.Equal(t, "https://nscdc.gov.ng/a", out[0].URL)
	assert.Equal(t, "NSCDC Update", out[0].Title)
	assert.Equal(t, placeholderSourceTitle, out[1].Title)
	assert.Equal(t, "https://iso.org/c", out[2].URL)
}

func TestExtractSources(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://nscdc.gov.ng/a", Title: "NSCDC Licensing Update"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://interior.gov.ng/b"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://nscdc.gov.ng/a", Title: "Repeat"}},
					{Web: nil},
				},
			},
		}},
	}

	out := extractSources(resp)
	require.Len(t, out, 2)
	assert.Equal(t, "https://nscdc.gov.ng/a", out[0].URL)
	assert.Equal(t, "NSCDC Licensing Update", out[0].Title, "service-supplied titles survive extraction")
	assert.Equal(t, "https://interior.gov.ng/b", out[1].URL)
	assert.Equal(t, placeholderSourceTitle, out[1].Title)
}

func TestExtractSourcesEmpty(t *testing.T) {
	assert.Nil(t, extractSources(nil))
	assert.Empty(t, extractSources(&genai.GenerateContentResponse{}))
}
