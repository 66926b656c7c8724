package core

import "google.golang.org/genai"

// Source is one grounding citation returned with a search-augmented
// generation. Title falls back to a placeholder when the service omits one;
// untyped metadata never crosses the gateway boundary.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

const placeholderSourceTitle = "Source Reference"

// dedupeSources keeps the first occurrence per URL, in order, and fills in
// the placeholder title where missing.
func dedupeSources(in []Source) []Source {
	seen := make(map[string]bool, len(in))
	out := make([]Source, 0, len(in))
	for _, src := range in {
		if src.URL == "" || seen[src.URL] {
			continue
		}
		seen[src.URL] = true
		if src.Title == "" {
			src.Title = placeholderSourceTitle
		}
		out = append(out, src)
	}
	return out
}

// extractSources pulls the web grounding chunks out of a grounded response.
func extractSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	var raw []Source
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			raw = append(raw, Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
		}
	}
	return dedupeSources(raw)
}
