package domain

import (
	"fmt"
	"slices"
)

// FieldSpec describes how one document field is indexed.
type FieldSpec struct {
	Field           string `json:"field"`
	Type            string `json:"type"`
	Country         string `json:"country,omitempty"`
	Language        string `json:"language,omitempty"`
	DefaultAnalyzer string `json:"default_analyzer,omitempty"`
	DefaultIndexer  string `json:"default_indexer,omitempty"`
	Sort            bool   `json:"sort"`
	Indexable       bool   `json:"indexable"`
	Raw             bool   `json:"raw"`
	GeoPoint        bool   `json:"geopoint"`
}

// Mapping is the schema stored for one index.
type Mapping struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
	Dates  []string    `json:"dates"`
	Tag    string      `json:"tag"`
}

// MappingDocument is the whole mapping store: index name to mapping.
type MappingDocument map[string]Mapping

// Validate rejects fields without a name and duplicate field names.
func (m Mapping) Validate() error {
	seen := make(map[string]struct{}, len(m.Fields))
	for i, f := range m.Fields {
		if f.Field == "" {
			return fmt.Errorf("%w: fields[%d] has no field name", ErrInvalidMapping, i)
		}
		if _, dup := seen[f.Field]; dup {
			return fmt.Errorf("%w: field %q is defined more than once", ErrInvalidMapping, f.Field)
		}
		seen[f.Field] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (m Mapping) Clone() Mapping {
	m.Fields = slices.Clone(m.Fields)
	m.Dates = slices.Clone(m.Dates)
	return m
}

// Clone returns a deep copy so callers cannot mutate store state.
func (d MappingDocument) Clone() MappingDocument {
	out := make(MappingDocument, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}
