// Package keyword provides Bleve implementation of KeywordIndex.
package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/chushaku/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// annotationDoc is the indexed projection of an annotation.
type annotationDoc struct {
	JobID   string `json:"job_id"`
	Text    string `json:"text"`
	Context string `json:"context"`
	Body    string `json:"body"`
	Author  string `json:"author"`
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so a search
	// for the annotated phrase matches the recorded text exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("context", textFieldMapping)
	docMapping.AddFieldMappingsAt("body", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("job_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("author", keywordFieldMapping)
	im.AddDocumentMapping("annotation", docMapping)
	im.DefaultType = "annotation"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to rebuild it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex creates an index that lives only in memory.
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes an annotation under its id.
func (b *BleveIndex) Index(ctx context.Context, a *models.Annotation) error {
	return b.index.Index(a.ID, annotationDoc{
		JobID:   a.JobID,
		Text:    a.Text,
		Context: a.Context,
		Body:    a.Body,
		Author:  a.Author,
	})
}

// Search runs a match query and returns up to limit results.
// When opts is nil or TextBoost <= 1, a single query over every field is used.
// When opts.TextBoost > 1, the matched-text and context fields are queried
// separately and merged additively with the text score boosted.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	textBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	jobID := ""
	if opts != nil {
		if opts.TextBoost > 0 {
			textBoost = opts.TextBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		jobID = opts.JobID
	}

	if textBoost <= 1.0 {
		return b.searchSingle(ctx, b.fieldQuery(query, "", fuzzyEnabled, fuzziness, jobID), limit)
	}
	return b.searchWithBoost(ctx, query, limit, textBoost, fuzzyEnabled, fuzziness, jobID)
}

// fieldQuery builds a match or fuzzy query on field ("" for all fields),
// restricted to jobID when set.
func (b *BleveIndex) fieldQuery(query, field string, fuzzyEnabled bool, fuzziness int, jobID string) blevequery.Query {
	var q blevequery.Query
	if fuzzyEnabled {
		q = b.buildFuzzyQuery(query, fuzziness, field)
	} else {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		q = mq
	}
	if jobID == "" {
		return q
	}
	tq := bleve.NewTermQuery(jobID)
	tq.SetField("job_id")
	return bleve.NewConjunctionQuery(q, tq)
}

func (b *BleveIndex) searchSingle(ctx context.Context, q blevequery.Query, limit int) ([]*KeywordResult, error) {
	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// searchWithBoost merges text and context scores: score = text*boost + context.
func (b *BleveIndex) searchWithBoost(ctx context.Context, query string, limit int, textBoost float64, fuzzyEnabled bool, fuzziness int, jobID string) ([]*KeywordResult, error) {
	// Request enough from each so the merged top "limit" is correct.
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	textResults, err := b.searchSingle(ctx, b.fieldQuery(query, "text", fuzzyEnabled, fuzziness, jobID), reqSize)
	if err != nil {
		return nil, err
	}
	contextResults, err := b.searchSingle(ctx, b.fieldQuery(query, "context", fuzzyEnabled, fuzziness, jobID), reqSize)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, hit := range textResults {
		scores[hit.ID] += hit.Score * textBoost
	}
	for _, hit := range contextResults {
		scores[hit.ID] += hit.Score
	}

	out := make([]*KeywordResult, 0, len(scores))
	for id, score := range scores {
		out = append(out, &KeywordResult{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func (b *BleveIndex) buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes an annotation from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of annotations in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
