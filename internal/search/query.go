package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/circulateapp/circulate-server/internal/normalize"
)

// Params configures a catalog search.
type Params struct {
	Query  string // User's search query
	Branch string // Exact branch filter (case-insensitive)

	MinYear int
	MaxYear int
	// AvailableOnly keeps only books with at least one copy on the shelf.
	AvailableOnly bool

	Limit  int
	Offset int

	SortBy    string // "relevance", "title", "recent"
	SortOrder string // "asc", "desc"

	Highlight bool // Include match highlighting
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     20,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single search result.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Branch     string            `json:"branch,omitempty"`
	Year       int               `json:"year,omitempty"`
	Available  int               `json:"available"`
	Total      int               `json:"total"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a catalog search.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
	}

	searchRequest.Fields = []string{"id", "title", "branch", "year", "available", "total"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if b, ok := hit.Fields["branch"].(string); ok {
			h.Branch = b
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			h.Year = int(y)
		}
		if a, ok := hit.Fields["available"].(float64); ok {
			h.Available = int(a)
		}
		if tc, ok := hit.Fields["total"].(float64); ok {
			h.Total = int(tc)
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		// Title match with highest boost.
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		// Description match.
		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		textQueries = append(textQueries, descMatch)

		// Fuzzy matching for typo tolerance on title.
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for as-you-type lookups (minimum 2 chars).
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Branch != "" {
		branchQuery := bleve.NewTermQuery(normalize.Branch(params.Branch))
		branchQuery.SetField("branch")
		queries = append(queries, branchQuery)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		minYear := float64(params.MinYear)
		maxYear := float64(params.MaxYear)
		if params.MaxYear == 0 {
			maxYear = 99 // Years of study, not calendar years
		}
		rangeQuery := bleve.NewNumericRangeQuery(&minYear, &maxYear)
		rangeQuery.SetField("year")
		queries = append(queries, rangeQuery)
	}

	if params.AvailableOnly {
		one := 1.0
		inclusive := true
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&one, nil, &inclusive, nil)
		rangeQuery.SetField("available")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}
