package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for catalog documents:
// full-text search on title and description with English stemming, exact
// keyword matching on branch, and numeric ranges for year and availability.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Title - primary search target, stored for result display.
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Description - searchable but not stored.
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Branch - exact match filter, uppercased at index time.
	branchFieldMapping := bleve.NewTextFieldMapping()
	branchFieldMapping.Analyzer = keyword.Name
	branchFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("branch", branchFieldMapping)

	// ID - stored but not analyzed.
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Numeric fields for range filters and sorting.
	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("year", yearFieldMapping)

	semesterFieldMapping := bleve.NewNumericFieldMapping()
	semesterFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("semester", semesterFieldMapping)

	availableFieldMapping := bleve.NewNumericFieldMapping()
	availableFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("available", availableFieldMapping)

	totalFieldMapping := bleve.NewNumericFieldMapping()
	totalFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("total", totalFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
