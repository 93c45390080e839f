// Package mappings turns stored field mappings into Elasticsearch index
// bodies.
package mappings

import (
	"strings"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

// Analyzer names defined in every index body.
const (
	IndexAnalyzer  = "string_index"
	SearchAnalyzer = "string_search"
)

// DateFormat accepts unix seconds as well as ISO 8601 strings.
const DateFormat = "epoch_second||strict_date_optional_time"

const notAnalyzed = "not_analyzed"

// Settings defines index-level settings
type Settings struct {
	NumberOfShards   int `json:"number_of_shards"`
	NumberOfReplicas int `json:"number_of_replicas"`
}

// DefaultSettings returns the settings used when none are configured.
// Zero replicas lets a single-node cluster report green.
func DefaultSettings() Settings {
	return Settings{
		NumberOfShards:   1,
		NumberOfReplicas: 0,
	}
}

// Translate builds the create-index body for m.
func Translate(m domain.Mapping, settings Settings) map[string]any {
	properties := make(map[string]any, len(m.Fields)+len(m.Dates))
	for _, f := range m.Fields {
		properties[f.Field] = fieldProperty(f)
	}
	for _, name := range m.Dates {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			prop = map[string]any{}
			properties[name] = prop
		}
		prop["type"] = "date"
		prop["format"] = DateFormat
		delete(prop, "analyzer")
		delete(prop, "search_analyzer")
		delete(prop, "fields")
	}

	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   settings.NumberOfShards,
			"number_of_replicas": settings.NumberOfReplicas,
			"analysis":           analysis(),
		},
		"mappings": map[string]any{
			"_meta": map[string]any{
				"name": m.Name,
				"tag":  m.Tag,
			},
			"properties": properties,
		},
	}
}

func fieldProperty(f domain.FieldSpec) map[string]any {
	prop := map[string]any{}

	switch fieldType := strings.ToLower(f.Type); {
	case f.GeoPoint || fieldType == "geo_point" || fieldType == "geopoint":
		prop["type"] = "geo_point"
	case fieldType == "" || fieldType == "string" || fieldType == "text":
		if f.DefaultIndexer == notAnalyzed {
			prop["type"] = "keyword"
			break
		}
		prop["type"] = "text"
		analyzer := f.DefaultAnalyzer
		if analyzer == "" {
			analyzer = IndexAnalyzer
		}
		prop["analyzer"] = analyzer
		if analyzer == IndexAnalyzer {
			prop["search_analyzer"] = SearchAnalyzer
		}
	default:
		prop["type"] = fieldType
	}

	if prop["type"] == "text" {
		subfields := map[string]any{}
		if f.Raw {
			subfields["raw"] = map[string]any{"type": "keyword"}
		}
		if f.Sort {
			subfields["sort"] = map[string]any{"type": "keyword", "normalizer": "sort_normalizer"}
		}
		if len(subfields) > 0 {
			prop["fields"] = subfields
		}
	}

	if !f.Indexable {
		prop["index"] = false
	}
	return prop
}

func analysis() map[string]any {
	return map[string]any{
		"analyzer": map[string]any{
			IndexAnalyzer: map[string]any{
				"type":      "custom",
				"tokenizer": "standard",
				"filter":    []string{"lowercase", "asciifolding"},
			},
			SearchAnalyzer: map[string]any{
				"type":      "custom",
				"tokenizer": "standard",
				"filter":    []string{"lowercase", "asciifolding"},
			},
		},
		"normalizer": map[string]any{
			"sort_normalizer": map[string]any{
				"type":   "custom",
				"filter": []string{"lowercase", "asciifolding"},
			},
		},
	}
}
