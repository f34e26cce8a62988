package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for tag documents.
//
// "name" holds the whole folded tag as a single term so prefix and fuzzy
// queries work on it directly. "words" is the same text split on
// non-letters, which lets "#love_bombing" match a search for "bombing".
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = keyword.Name
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	wordsFieldMapping := bleve.NewTextFieldMapping()
	wordsFieldMapping.Analyzer = simple.Name
	wordsFieldMapping.Store = false
	wordsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("words", wordsFieldMapping)

	displayFieldMapping := bleve.NewTextFieldMapping()
	displayFieldMapping.Analyzer = keyword.Name
	displayFieldMapping.Store = true
	displayFieldMapping.Index = false
	docMapping.AddFieldMappingsAt("display", displayFieldMapping)

	// Addresses: exact match filters.
	for _, field := range []string{"id", "owner", "creator", "relayer"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	for _, field := range []string{"premium", "reserved"} {
		fm := bleve.NewBooleanFieldMapping()
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
