package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Limits for a single search page.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// SearchParams configures a tag search.
type SearchParams struct {
	Query string // free text; a leading '#' is ignored

	// Filters
	Owner       string // exact 0x address
	PremiumOnly bool

	Limit  int
	Offset int

	SortBy string // "relevance" (default), "recent", "name"
}

// DefaultSearchParams returns the first page sorted by relevance.
func DefaultSearchParams() SearchParams {
	return SearchParams{Limit: DefaultSearchLimit, SortBy: "relevance"}
}

// SearchResult is one page of tag hits.
type SearchResult struct {
	Query  string   `json:"query"`
	Total  uint64   `json:"total"`
	TookMs int64    `json:"took_ms"`
	Hits   []TagHit `json:"hits"`
}

// TagHit is a single matching tag.
type TagHit struct {
	ID      string  `json:"id"`
	Display string  `json:"display"`
	Owner   string  `json:"owner"`
	Premium bool    `json:"premium"`
	Score   float64 `json:"score"`
}

// Search executes a tag search.
func (s *TagIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultSearchLimit
	}
	if params.Limit > MaxSearchLimit {
		params.Limit = MaxSearchLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)
	req.Fields = []string{"display", "owner", "premium"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]TagHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := TagHit{ID: hit.ID, Score: hit.Score}
		if d, ok := hit.Fields["display"].(string); ok {
			h.Display = d
		}
		if o, ok := hit.Fields["owner"].(string); ok {
			h.Owner = o
		}
		if p, ok := hit.Fields["premium"].(bool); ok {
			h.Premium = p
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildSearchQuery combines the text query with the filters.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := searchName(params.Query); q != "" {
		exact := bleve.NewTermQuery(q)
		exact.SetField("name")
		exact.SetBoost(4.0)

		prefix := bleve.NewPrefixQuery(q)
		prefix.SetField("name")
		prefix.SetBoost(2.0)

		words := bleve.NewMatchQuery(q)
		words.SetField("words")

		text := []query.Query{exact, prefix, words}

		// Typo tolerance only once there is enough to go on.
		if len(q) >= 4 {
			fuzzy := bleve.NewFuzzyQuery(q)
			fuzzy.SetField("name")
			fuzzy.SetFuzziness(1)
			fuzzy.SetBoost(0.5)
			text = append(text, fuzzy)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	if params.Owner != "" {
		owner := bleve.NewTermQuery(params.Owner)
		owner.SetField("owner")
		queries = append(queries, owner)
	}

	if params.PremiumOnly {
		premium := bleve.NewBoolFieldQuery(true)
		premium.SetField("premium")
		queries = append(queries, premium)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "recent":
		req.SortBy([]string{"-created_at", "_id"})
	case "name":
		req.SortBy([]string{"name", "_id"})
	default:
		req.SortBy([]string{"-_score", "_id"})
	}
}
