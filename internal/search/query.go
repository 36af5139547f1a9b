package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit is the number of hits returned when Options.Limit is unset.
const DefaultLimit = 10

// Options narrows a search.
type Options struct {
	Quest   string
	Verdict string
	Limit   int
}

var resultFields = []string{"quest", "category", "file", "verdict", "score", "issues", "pattern_summary"}

// Search matches text against the indexed records. An empty text with a
// filter lists every record passing the filter.
func (i *Indexer) Search(text string, opts Options) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var clauses []query.Query
	if text = strings.TrimSpace(text); text != "" {
		clauses = append(clauses, bleve.NewMatchQuery(text))
	}
	if opts.Quest != "" {
		q := bleve.NewTermQuery(opts.Quest)
		q.SetField("quest")
		clauses = append(clauses, q)
	}
	if opts.Verdict != "" {
		q := bleve.NewTermQuery(strings.ToUpper(opts.Verdict))
		q.SetField("verdict")
		clauses = append(clauses, q)
	}

	var q query.Query
	switch len(clauses) {
	case 0:
		q = bleve.NewMatchAllQuery()
	case 1:
		q = clauses[0]
	default:
		q = bleve.NewConjunctionQuery(clauses...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = resultFields
	if text == "" {
		req.SortBy([]string{"_id"})
	}

	results, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return convertBleveResults(results), nil
}

// convertBleveResults converts Bleve search results to our Result format.
func convertBleveResults(results *bleve.SearchResult) []Result {
	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		r := Result{ID: hit.ID, Relevance: hit.Score}
		r.Quest, _ = hit.Fields["quest"].(string)
		r.Category, _ = hit.Fields["category"].(string)
		r.File, _ = hit.Fields["file"].(string)
		r.Verdict, _ = hit.Fields["verdict"].(string)
		r.Issues, _ = hit.Fields["issues"].(string)
		r.PatternSummary, _ = hit.Fields["pattern_summary"].(string)
		if score, ok := hit.Fields["score"].(float64); ok {
			r.Score = int(score)
		}
		out = append(out, r)
	}
	return out
}
