package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StorageHash is the only document layout the search indexes use.
const StorageHash = "HASH"

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a sortable numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match tag field.
	IndexFieldTag
	// IndexFieldText is a full-text field.
	IndexFieldText
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	}
	return "UNKNOWN"
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	TagSeparator     string
	TagCaseSensitive bool

	TextWeight float64
}

// IndexDefinition is an FT index over hash documents.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the definition can be sent to FT.CREATE.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		switch {
		case f.Name == "":
			return errors.New("field name is required at position " + strconv.Itoa(i))
		case seen[f.Name]:
			return errors.New("duplicate field name: " + f.Name)
		case f.TextWeight < 0:
			return errors.New("text weight must not be negative: " + f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// String renders the definition the way FT.CREATE receives it.
func (idx *IndexDefinition) String() string {
	var sb strings.Builder
	sb.WriteString("FT.CREATE " + idx.Name + " ON " + StorageHash)
	if len(idx.Prefixes) > 0 {
		sb.WriteString(" PREFIX " + strings.Join(idx.Prefixes, " "))
	}
	sb.WriteString(" SCHEMA")
	for _, f := range idx.Fields {
		sb.WriteString(" " + f.Name + " " + f.Type.String())
		if f.Type == IndexFieldText && f.TextWeight > 0 {
			sb.WriteString(" WEIGHT " + strconv.FormatFloat(f.TextWeight, 'f', -1, 64))
		}
	}
	return sb.String()
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition named name.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds document key prefixes.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldNumeric})
	return b
}

func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldTag})
	return b
}

// TagList adds a tag field holding several values joined by separator.
func (b *IndexBuilder) TagList(name, separator string, caseSensitive bool) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:             name,
		Type:             IndexFieldTag,
		TagSeparator:     separator,
		TagCaseSensitive: caseSensitive,
	})
	return b
}

// Text adds a full-text field. A weight of zero keeps the server default.
func (b *IndexBuilder) Text(name string, weight float64) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldText, TextWeight: weight})
	return b
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}
