package hl7

import (
	"testing"
	"time"
)

func TestEncodingCharacters(t *testing.T) {
	d := Default()
	if got := d.EncodingCharacters(); got != `^~\&` {
		t.Errorf("encoding characters = %q, want %q", got, `^~\&`)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	d := Default()

	tests := []struct {
		name    string
		in      string
		escaped string
	}{
		{"plain", "SMITH", "SMITH"},
		{"field sep", "A|B", `A\F\B`},
		{"component sep", "A^B", `A\S\B`},
		{"repetition sep", "A~B", `A\R\B`},
		{"subcomponent sep", "A&B", `A\T\B`},
		{"escape char", `A\B`, `A\E\B`},
		{"mixed", `a|b^c&d`, `a\F\b\S\c\T\d`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Escape(tt.in)
			if got != tt.escaped {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.escaped)
			}
			if back := d.Unescape(got); back != tt.in {
				t.Errorf("Unescape(%q) = %q, want %q", got, back, tt.in)
			}
		})
	}
}

func TestEscapeNeverLeaksDelimiters(t *testing.T) {
	d := Default()
	got := d.Escape(`x|y^z~w&v\u`)
	for _, c := range []byte{d.Field, d.Component, d.Repetition, d.Subcomponent} {
		for i := 0; i < len(got); i++ {
			if got[i] == c {
				t.Fatalf("escaped value %q still contains delimiter %q", got, string(c))
			}
		}
	}
}

func TestControlID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full header", "MSH|^~\\&|APP|FAC|RAPP|RFAC|20260314092653||ADT^A01|123456789012|P|2.5.1\rPID|1", "123456789012"},
		{"single segment", "MSH|^~\\&|APP|FAC|RAPP|RFAC|20260314092653||ADT^A01|42|P|2.5.1", "42"},
		{"short header", "MSH|^~\\&|APP", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ControlID(tt.in); got != tt.want {
				t.Errorf("ControlID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimestampFormats(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "20260314092653" {
		t.Errorf("FormatTimestamp = %q", got)
	}
	if got := FormatDate(ts); got != "20260314" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatTime(ts); got != "092653" {
		t.Errorf("FormatTime = %q", got)
	}

	back, err := ParseTimestamp("20260314092653")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if !back.Equal(ts) {
		t.Errorf("round trip = %v, want %v", back, ts)
	}
}

func TestMessageType(t *testing.T) {
	d := Default()
	if got := MessageType("ADT_A01", d); got != "ADT^A01" {
		t.Errorf("MessageType = %q", got)
	}
	if got := MessageType("ORU^R01", d); got != "ORU^R01" {
		t.Errorf("MessageType = %q", got)
	}
}
