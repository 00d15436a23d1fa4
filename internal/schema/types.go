// Package schema defines the HL7 definition model (trigger events, segments,
// data types, tables) and the provider interfaces the composition engine
// reads them through.
package schema

import "fmt"

// Optionality describes whether a schema element must be present.
type Optionality string

const (
	Required    Optionality = "R"
	Optional    Optionality = "O"
	Conditional Optionality = "C"
)

// ParseOptionality maps a schema usage code to an Optionality. Unknown codes
// degrade to Optional, matching how published HL7 tables mix B/W/X markers
// into otherwise optional positions.
func ParseOptionality(code string) Optionality {
	switch code {
	case "R":
		return Required
	case "C", "CE":
		return Conditional
	default:
		return Optional
	}
}

// Repeatability describes how many times a schema element may occur.
type Repeatability string

const (
	Single    Repeatability = "1"
	Unbounded Repeatability = "*"
)

// TriggerEventDefinition describes the segment grammar of one message type.
// Identified by (Standard, Version, Code); immutable once loaded.
type TriggerEventDefinition struct {
	Code        string        `yaml:"code"`
	Standard    string        `yaml:"standard"`
	Version     string        `yaml:"version"`
	Description string        `yaml:"description,omitempty"`
	Rules       []SegmentRule `yaml:"segments"`
}

// SegmentRule is one row of a trigger event's segment grammar. A group rule
// (IsGroup true) emits no segment itself; it opens a scope whose members are
// the following rules at a deeper nesting level.
type SegmentRule struct {
	SegmentCode   string        `yaml:"segment"`
	Description   string        `yaml:"description,omitempty"`
	Optionality   Optionality   `yaml:"optionality"`
	Repeatability Repeatability `yaml:"repeatability"`
	IsGroup       bool          `yaml:"group,omitempty"`
	NestingLevel  int           `yaml:"level,omitempty"`
}

// SegmentSchema describes the ordered fields of one segment code.
type SegmentSchema struct {
	Code        string            `yaml:"code"`
	Description string            `yaml:"description,omitempty"`
	Fields      []FieldDefinition `yaml:"fields"`
}

// FieldDefinition describes one position-addressed field of a segment.
// Position is 1-based and contiguous within a segment schema.
type FieldDefinition struct {
	Position      int           `yaml:"position"`
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description,omitempty"`
	DataTypeCode  string        `yaml:"dataType"`
	Optionality   Optionality   `yaml:"optionality"`
	Repeatability Repeatability `yaml:"repeatability,omitempty"`
	MaxLength     int           `yaml:"maxLength,omitempty"`
	TableID       string        `yaml:"table,omitempty"`
}

// DataTypeDefinition describes a data type. An empty component list marks a
// primitive type; otherwise the field is composite and its value is the
// component values joined by the component separator.
type DataTypeDefinition struct {
	Code        string                `yaml:"code"`
	Description string                `yaml:"description,omitempty"`
	Components  []ComponentDefinition `yaml:"components,omitempty"`
}

// Primitive reports whether the data type has no components.
func (d DataTypeDefinition) Primitive() bool { return len(d.Components) == 0 }

// ComponentDefinition describes one component of a composite data type.
type ComponentDefinition struct {
	Name         string      `yaml:"name"`
	DataTypeCode string      `yaml:"dataType"`
	Optionality  Optionality `yaml:"optionality"`
	TableID      string      `yaml:"table,omitempty"`
}

// TableDefinition is a closed enumeration of legal codes.
type TableDefinition struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name,omitempty"`
	Entries []TableEntry `yaml:"entries"`
}

// TableEntry is one (code, description) pair of a table.
type TableEntry struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description,omitempty"`
}

// Codes returns the table's codes in declared order.
func (t TableDefinition) Codes() []string {
	codes := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		codes[i] = e.Code
	}
	return codes
}

// Validate checks structural invariants of a segment schema: contiguous
// 1-based positions and non-empty data type codes.
func (s SegmentSchema) Validate() error {
	if s.Code == "" {
		return fmt.Errorf("segment schema missing code")
	}
	for i, f := range s.Fields {
		if f.Position != i+1 {
			return fmt.Errorf("segment %s: field %q at index %d has position %d, want %d", s.Code, f.Name, i, f.Position, i+1)
		}
		if f.DataTypeCode == "" {
			return fmt.Errorf("segment %s: field %q has no data type", s.Code, f.Name)
		}
	}
	return nil
}
