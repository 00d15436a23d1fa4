package schema

import (
	"context"
	"errors"
	"testing"
)

func TestParseOptionality(t *testing.T) {
	tests := []struct {
		code string
		want Optionality
	}{
		{"R", Required},
		{"O", Optional},
		{"C", Conditional},
		{"CE", Conditional},
		{"B", Optional},
		{"", Optional},
	}
	for _, tt := range tests {
		if got := ParseOptionality(tt.code); got != tt.want {
			t.Errorf("ParseOptionality(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSegmentSchemaValidate(t *testing.T) {
	valid := SegmentSchema{
		Code: "PID",
		Fields: []FieldDefinition{
			{Position: 1, Name: "Set ID", DataTypeCode: "SI"},
			{Position: 2, Name: "Patient ID", DataTypeCode: "CX"},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid schema rejected: %v", err)
	}

	gap := SegmentSchema{
		Code: "PID",
		Fields: []FieldDefinition{
			{Position: 1, Name: "Set ID", DataTypeCode: "SI"},
			{Position: 3, Name: "Patient ID", DataTypeCode: "CX"},
		},
	}
	if err := gap.Validate(); err == nil {
		t.Error("non-contiguous positions accepted")
	}

	noType := SegmentSchema{
		Code:   "PID",
		Fields: []FieldDefinition{{Position: 1, Name: "Set ID"}},
	}
	if err := noType.Validate(); err == nil {
		t.Error("missing data type accepted")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.TriggerEvent(ctx, "ADT_A01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TriggerEvent err = %v, want ErrNotFound", err)
	}
	if _, err := s.Segment(ctx, "PID"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Segment err = %v, want ErrNotFound", err)
	}
	if _, err := s.DataType(ctx, "XPN"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DataType err = %v, want ErrNotFound", err)
	}
	if _, err := s.Table(ctx, "0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Table err = %v, want ErrNotFound", err)
	}
}

func TestLoadYAML(t *testing.T) {
	doc := []byte(`
triggerEvents:
  - code: ADT_A01
    standard: hl7v2
    version: "2.3"
    description: Admit/visit notification
    segments:
      - segment: MSH
        optionality: R
        repeatability: "1"
      - segment: PID
        optionality: R
        repeatability: "1"
segments:
  - code: PID
    description: Patient Identification
    fields:
      - position: 1
        name: Set ID - PID
        dataType: SI
        optionality: O
      - position: 2
        name: Patient ID
        dataType: CX
        optionality: R
        table: "0061"
dataTypes:
  - code: CX
    components:
      - name: ID Number
        dataType: ST
        optionality: R
      - name: Check Digit
        dataType: ST
        optionality: O
  - code: ST
tables:
  - id: "0001"
    name: Administrative Sex
    entries:
      - code: F
        description: Female
      - code: M
        description: Male
`)

	store := NewMemoryStore()
	if err := LoadYAML(store, doc); err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}

	ctx := context.Background()

	te, err := store.TriggerEvent(ctx, "ADT_A01")
	if err != nil {
		t.Fatalf("TriggerEvent: %v", err)
	}
	if len(te.Rules) != 2 || te.Rules[1].SegmentCode != "PID" {
		t.Errorf("unexpected rules: %+v", te.Rules)
	}

	seg, err := store.Segment(ctx, "PID")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if seg.Fields[1].TableID != "0061" {
		t.Errorf("field table = %q, want 0061", seg.Fields[1].TableID)
	}

	dt, err := store.DataType(ctx, "CX")
	if err != nil {
		t.Fatalf("DataType: %v", err)
	}
	if dt.Primitive() || len(dt.Components) != 2 {
		t.Errorf("CX components = %+v", dt.Components)
	}

	st, err := store.DataType(ctx, "ST")
	if err != nil {
		t.Fatalf("DataType ST: %v", err)
	}
	if !st.Primitive() {
		t.Error("ST should be primitive")
	}

	table, err := store.Table(ctx, "0001")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got := table.Codes(); len(got) != 2 || got[0] != "F" {
		t.Errorf("table codes = %v", got)
	}
}

func TestLoadYAMLRejectsInvalidSegment(t *testing.T) {
	doc := []byte(`
segments:
  - code: PID
    fields:
      - position: 2
        name: Out Of Order
        dataType: ST
`)
	if err := LoadYAML(NewMemoryStore(), doc); err == nil {
		t.Fatal("expected validation error for non-contiguous positions")
	}
}

// countingStore counts lookups so cache behavior is observable.
type countingStore struct {
	*MemoryStore
	segmentCalls int
}

func (c *countingStore) Segment(ctx context.Context, code string) (*SegmentSchema, error) {
	c.segmentCalls++
	return c.MemoryStore.Segment(ctx, code)
}

func TestCachedStoreReadThrough(t *testing.T) {
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	backing.AddSegment(&SegmentSchema{
		Code:   "EVN",
		Fields: []FieldDefinition{{Position: 1, Name: "Event Type Code", DataTypeCode: "ID"}},
	})

	cached := NewCachedStore(backing, DefaultCacheSizes())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seg, err := cached.Segment(ctx, "EVN")
		if err != nil {
			t.Fatalf("Segment: %v", err)
		}
		if seg.Code != "EVN" {
			t.Fatalf("got segment %q", seg.Code)
		}
	}
	if backing.segmentCalls != 1 {
		t.Errorf("backing called %d times, want 1", backing.segmentCalls)
	}

	// Misses are cached as negative entries.
	for i := 0; i < 3; i++ {
		if _, err := cached.Segment(ctx, "ZZZ"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if backing.segmentCalls != 2 {
		t.Errorf("backing called %d times after misses, want 2", backing.segmentCalls)
	}
}
