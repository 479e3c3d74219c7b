package searchdb

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
)

const IndexingBatchSize = 100

const (
	indexFieldContent = "content"
	indexFieldTitle   = "title"
	indexFieldName    = "name"
	indexFieldSource  = "source"
	indexFieldTags    = "tags"
	indexFieldPages   = "pages"
)

var quotedPhraseRegex = regexp.MustCompile(`"([^"]*)"`)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
}

func New(logger logger.Logger, cfg *config.Config) (*BleveDB, error) {
	return Open(logger, filepath.Join(cfg.GetStoragePath(), cfg.GetIndexPath()))
}

func Open(logger logger.Logger, indexPath string) (*BleveDB, error) {
	index, err := bleve.New(indexPath, createIndexMapping())
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "path", indexPath, "err", err.Error())
			return nil, err
		}
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

func (b *BleveDB) BuildIndex(documents []Document) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		err := batch.Index(doc.ID, doc)
		if err != nil {
			b.logger.Error("could not index document", "id", doc.ID, "err", err.Error())
			return err
		}

		if (i+1)%IndexingBatchSize == 0 {
			err = b.index.Batch(batch)
			if err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index documents", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping() mapping.IndexMapping {

	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTitle, titleFieldMapping)

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldName, nameFieldMapping)

	// Stored so that highlighting can build snippets
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = standard.Name
	contentFieldMapping.Store = true
	contentFieldMapping.Index = true
	docMapping.AddFieldMappingsAt(indexFieldContent, contentFieldMapping)

	sourceFieldMapping := bleve.NewTextFieldMapping()
	sourceFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldSource, sourceFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldTags, tagsFieldMapping)

	pagesFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(indexFieldPages, pagesFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func (b *BleveDB) Search(queryString string, limit int, offset int) (*Response, error) {
	start := time.Now()

	searchQuery := b.buildSearchQuery(queryString)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, offset, false)

	searchRequest.Fields = []string{indexFieldTitle, indexFieldName, indexFieldSource, indexFieldTags, indexFieldPages}

	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField(indexFieldContent)

	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, len(searchResult.Hits))
	for i, hit := range searchResult.Hits {
		result := Result{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if title, ok := hit.Fields[indexFieldTitle].(string); ok {
			result.Title = title
		}
		if name, ok := hit.Fields[indexFieldName].(string); ok {
			result.Name = name
		}
		if source, ok := hit.Fields[indexFieldSource].(string); ok {
			result.Source = source
		}
		if pages, ok := hit.Fields[indexFieldPages].(float64); ok {
			result.Pages = int(pages)
		}
		result.Tags = fieldStrings(hit.Fields[indexFieldTags])

		if fragments := hit.Fragments[indexFieldContent]; len(fragments) > 0 {
			result.Snippet = fragments[0]
		}

		results[i] = result
	}

	response := &Response{
		Results:    results,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}

	return response, nil
}

// Multi-valued fields come back as []interface{}, single values as a plain string.
func fieldStrings(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values
	default:
		return nil
	}
}

func (b *BleveDB) buildSearchQuery(queryString string) query.Query {

	const (
		boostForContent      = 3.0
		boostForTitle        = 2.0
		boostForTags         = 2.0
		boostForFileName     = 1.0
		boostForPhraseMatch  = 5.0
		boostForPartialMatch = 1.5
	)

	queryString = strings.ToLower(strings.TrimSpace(queryString))

	if queryString == "" {
		return bleve.NewMatchAllQuery()
	}

	quotedPhrases, remaining := parseQuotedQuery(queryString)

	// Quoted phrases must all match, the rest of the query only scores.
	if len(quotedPhrases) > 0 {
		conjunctQuery := bleve.NewConjunctionQuery()
		for _, phrase := range quotedPhrases {
			phraseDisjunct := bleve.NewDisjunctionQuery()
			for _, field := range []string{indexFieldContent, indexFieldTitle} {
				phraseQuery := bleve.NewMatchPhraseQuery(phrase)
				phraseQuery.SetField(field)
				phraseQuery.SetBoost(boostForPhraseMatch)
				phraseDisjunct.AddQuery(phraseQuery)
			}
			conjunctQuery.AddQuery(phraseDisjunct)
		}
		if remaining != "" {
			booleanQuery := bleve.NewBooleanQuery()
			booleanQuery.AddMust(conjunctQuery)
			booleanQuery.AddShould(b.buildTermsQuery(remaining, boostForContent, boostForTitle, boostForTags, boostForFileName))
			return booleanQuery
		}
		return conjunctQuery
	}

	disjunctQuery := b.buildTermsQuery(queryString, boostForContent, boostForTitle, boostForTags, boostForFileName)

	phraseQuery := bleve.NewMatchPhraseQuery(queryString)
	phraseQuery.SetField(indexFieldContent)
	phraseQuery.SetBoost(boostForPhraseMatch)
	disjunctQuery.AddQuery(phraseQuery)

	if len(queryString) > 2 {
		prefixQuery := bleve.NewPrefixQuery(queryString)
		prefixQuery.SetField(indexFieldTitle)
		prefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(prefixQuery)

		contentPrefixQuery := bleve.NewPrefixQuery(queryString)
		contentPrefixQuery.SetField(indexFieldContent)
		contentPrefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(contentPrefixQuery)
	}

	return disjunctQuery
}

func (b *BleveDB) buildTermsQuery(queryString string, contentBoost, titleBoost, tagsBoost, nameBoost float64) *query.DisjunctionQuery {
	disjunctQuery := bleve.NewDisjunctionQuery()

	contentQuery := bleve.NewMatchQuery(queryString)
	contentQuery.SetField(indexFieldContent)
	contentQuery.SetBoost(contentBoost)
	disjunctQuery.AddQuery(contentQuery)

	titleQuery := bleve.NewMatchQuery(queryString)
	titleQuery.SetField(indexFieldTitle)
	titleQuery.SetBoost(titleBoost)
	disjunctQuery.AddQuery(titleQuery)

	tagsQuery := bleve.NewTermQuery(queryString)
	tagsQuery.SetField(indexFieldTags)
	tagsQuery.SetBoost(tagsBoost)
	disjunctQuery.AddQuery(tagsQuery)

	nameQuery := bleve.NewMatchQuery(queryString)
	nameQuery.SetField(indexFieldName)
	nameQuery.SetBoost(nameBoost)
	disjunctQuery.AddQuery(nameQuery)

	return disjunctQuery
}

// parseQuotedQuery splits `"exact phrase" other terms` into its quoted phrases and the remaining terms.
func parseQuotedQuery(queryString string) ([]string, string) {
	var quoted []string
	for _, match := range quotedPhraseRegex.FindAllStringSubmatch(queryString, -1) {
		if phrase := strings.TrimSpace(match[1]); phrase != "" {
			quoted = append(quoted, phrase)
		}
	}

	remaining := quotedPhraseRegex.ReplaceAllString(queryString, " ")
	return quoted, strings.Join(strings.Fields(remaining), " ")
}

func (b *BleveDB) DeleteDocuments(documentIDs []string) error {
	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		if (i+1)%IndexingBatchSize == 0 {
			err := b.index.Batch(batch)
			if err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
