// Package hl7 provides HL7 v2.x wire-format constants and helpers: the
// delimiter set, escape sequences, and the canonical date/time formats.
package hl7

import (
	"strings"
	"time"
)

// Default HL7 v2.x delimiter characters.
const (
	DefaultFieldSeparator     = '|'
	DefaultComponentSeparator = '^'
	DefaultRepetitionSep      = '~'
	DefaultEscapeCharacter    = '\\'
	DefaultSubcomponentSep    = '&'
	DefaultSegmentTerminator  = "\r"
)

// Delimiters defines the separator characters for one message. HL7 allows a
// sending system to choose its own, so they are data, not constants: MSH-1
// carries the field separator and MSH-2 the remaining four.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	EscapeChar   byte
	Subcomponent byte
	// SegmentTerminator joins segment lines. The HL7 standard mandates CR.
	SegmentTerminator string
}

// Default returns the standard HL7 delimiter set (|^~\& with CR terminator).
func Default() Delimiters {
	return Delimiters{
		Field:             DefaultFieldSeparator,
		Component:         DefaultComponentSeparator,
		Repetition:        DefaultRepetitionSep,
		EscapeChar:        DefaultEscapeCharacter,
		Subcomponent:      DefaultSubcomponentSep,
		SegmentTerminator: DefaultSegmentTerminator,
	}
}

// EncodingCharacters renders the MSH-2 value: component, repetition, escape,
// subcomponent, in that order.
func (d Delimiters) EncodingCharacters() string {
	return string([]byte{d.Component, d.Repetition, d.EscapeChar, d.Subcomponent})
}

// Escape replaces delimiter characters occurring inside a leaf value with
// their HL7 escape sequences, so the value cannot be misread as structure.
func (d Delimiters) Escape(value string) string {
	if !strings.ContainsAny(value, string([]byte{d.EscapeChar, d.Field, d.Component, d.Repetition, d.Subcomponent})) {
		return value
	}
	esc := string(d.EscapeChar)
	r := strings.NewReplacer(
		string(d.EscapeChar), esc+"E"+esc,
		string(d.Field), esc+"F"+esc,
		string(d.Component), esc+"S"+esc,
		string(d.Repetition), esc+"R"+esc,
		string(d.Subcomponent), esc+"T"+esc,
	)
	return r.Replace(value)
}

// Unescape reverses Escape. Unknown escape sequences are left intact.
func (d Delimiters) Unescape(value string) string {
	esc := string(d.EscapeChar)
	if !strings.Contains(value, esc) {
		return value
	}
	r := strings.NewReplacer(
		esc+"F"+esc, string(d.Field),
		esc+"S"+esc, string(d.Component),
		esc+"R"+esc, string(d.Repetition),
		esc+"T"+esc, string(d.Subcomponent),
		esc+"E"+esc, string(d.EscapeChar),
	)
	return r.Replace(value)
}

// FormatTimestamp formats a time to the HL7 TS/DTM shape (CCYYMMDDHHMMSS).
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// FormatDate formats a time to the HL7 DT shape (CCYYMMDD).
func FormatDate(t time.Time) string {
	return t.Format("20060102")
}

// FormatTime formats a time to the HL7 TM shape (HHMMSS).
func FormatTime(t time.Time) string {
	return t.Format("150405")
}

// ParseTimestamp parses an HL7 TS/DTM string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse("20060102150405", s)
}

// ParseDate parses an HL7 DT string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("20060102", s)
}

// MessageType renders an MSH-9 value (e.g. "ADT^A01") from a trigger event
// code of the form "ADT_A01" or "ADT^A01".
func MessageType(triggerEvent string, d Delimiters) string {
	code := strings.ReplaceAll(triggerEvent, "_", string(d.Component))
	return code
}

// ControlID pulls MSH-10 out of a composed message. Returns "" when the
// header is missing or short.
func ControlID(message string) string {
	header := message
	if i := strings.Index(header, DefaultSegmentTerminator); i >= 0 {
		header = header[:i]
	}
	fields := strings.Split(header, string(DefaultFieldSeparator))
	if len(fields) > 9 {
		return fields[9]
	}
	return ""
}
