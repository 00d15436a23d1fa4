package compose

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ConnorBritain/pidgeon/internal/domain"
	"github.com/ConnorBritain/pidgeon/internal/schema"
)

var testClock = func() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testStore(t *testing.T) *schema.MemoryStore {
	t.Helper()
	s := schema.NewMemoryStore()

	for _, code := range []string{"ST", "SI", "NM", "DT", "TS", "ID", "IS"} {
		s.AddDataType(&schema.DataTypeDefinition{Code: code})
	}
	s.AddDataType(&schema.DataTypeDefinition{
		Code: "XPN",
		Components: []schema.ComponentDefinition{
			{Name: "Family Name", DataTypeCode: "ST", Optionality: schema.Required},
			{Name: "Given Name", DataTypeCode: "ST", Optionality: schema.Required},
		},
	})

	s.AddTable(&schema.TableDefinition{ID: "0001", Entries: []schema.TableEntry{
		{Code: "F"}, {Code: "M"},
	}})
	s.AddTable(&schema.TableDefinition{ID: "0004", Entries: []schema.TableEntry{
		{Code: "I"}, {Code: "O"}, {Code: "E"},
	}})

	segments := []*schema.SegmentSchema{
		{Code: "EVN", Fields: []schema.FieldDefinition{
			{Position: 1, Name: "Event Type Code", DataTypeCode: "ID", Optionality: schema.Required},
			{Position: 2, Name: "Recorded Date/Time", DataTypeCode: "TS", Optionality: schema.Required},
		}},
		{Code: "PID", Fields: []schema.FieldDefinition{
			{Position: 1, Name: "Set ID - PID", DataTypeCode: "SI", Optionality: schema.Required},
			{Position: 2, Name: "Patient Name", DataTypeCode: "XPN", Optionality: schema.Required},
			{Position: 3, Name: "Date of Birth", DataTypeCode: "DT", Optionality: schema.Required},
			{Position: 4, Name: "Administrative Sex", DataTypeCode: "IS", Optionality: schema.Required, TableID: "0001"},
		}},
		{Code: "PV1", Fields: []schema.FieldDefinition{
			{Position: 1, Name: "Set ID - PV1", DataTypeCode: "SI", Optionality: schema.Required},
			{Position: 2, Name: "Patient Class", DataTypeCode: "IS", Optionality: schema.Required, TableID: "0004"},
		}},
		{Code: "NK1", Fields: []schema.FieldDefinition{
			{Position: 1, Name: "Set ID - NK1", DataTypeCode: "SI", Optionality: schema.Required},
			{Position: 2, Name: "Name", DataTypeCode: "XPN", Optionality: schema.Required},
		}},
		{Code: "IN1", Fields: []schema.FieldDefinition{
			{Position: 1, Name: "Set ID - IN1", DataTypeCode: "SI", Optionality: schema.Required},
			{Position: 2, Name: "Insurance Plan ID", DataTypeCode: "ID", Optionality: schema.Required},
		}},
	}
	for _, seg := range segments {
		if err := s.AddSegment(seg); err != nil {
			t.Fatalf("AddSegment(%s): %v", seg.Code, err)
		}
	}

	required := func(code string) schema.SegmentRule {
		return schema.SegmentRule{
			SegmentCode:   code,
			Optionality:   schema.Required,
			Repeatability: schema.Single,
		}
	}

	s.AddTriggerEvent(&schema.TriggerEventDefinition{
		Code:  "X01",
		Rules: []schema.SegmentRule{required("MSH"), required("EVN"), required("PID"), required("PV1")},
	})
	s.AddTriggerEvent(&schema.TriggerEventDefinition{
		Code: "ADT_A01",
		Rules: []schema.SegmentRule{
			required("MSH"),
			required("EVN"),
			required("PID"),
			required("PV1"),
			{SegmentCode: "NK1", Description: "Next of Kin / Associated Parties",
				Optionality: schema.Optional, Repeatability: schema.Unbounded},
			{SegmentCode: "INSURANCE", Description: "Insurance",
				Optionality: schema.Optional, Repeatability: schema.Single, IsGroup: true, NestingLevel: 0},
			{SegmentCode: "IN1", Optionality: schema.Required, Repeatability: schema.Single, NestingLevel: 1},
		},
	})
	s.AddTriggerEvent(&schema.TriggerEventDefinition{
		Code:  "RDE_O11",
		Rules: []schema.SegmentRule{required("MSH"), required("PID")},
	})
	s.AddTriggerEvent(&schema.TriggerEventDefinition{
		Code:  "Z01",
		Rules: []schema.SegmentRule{required("MSH"), required("ZZZ")},
	})

	return s
}

func testPatient() *domain.Patient {
	return &domain.Patient{
		MRN:        "MRN12345678",
		FamilyName: "Doe",
		GivenName:  "John",
		Sex:        "M",
		BirthDate:  time.Date(1980, 5, 15, 0, 0, 0, 0, time.UTC),
		Street:     "123 MAIN ST",
		City:       "SPRINGFIELD",
		State:      "IL",
		PostalCode: "62701",
		Phone:      "(217)555-0134",
		AccountNo:  "ACC00000001",
	}
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	return NewComposer(testStore(t), nil, nil)
}

func lines(text string) []string {
	return strings.Split(text, "\r")
}

func TestComposeDeterministic(t *testing.T) {
	c := newTestComposer(t)
	opts := []Option{WithSeed(42), WithClock(testClock)}

	first, err := c.Compose(context.Background(), "ADT_A01", nil, opts...)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := c.Compose(context.Background(), "ADT_A01", nil, opts...)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if first != second {
		t.Errorf("same seed produced different output:\n%q\n%q", first, second)
	}
}

func TestComposeUnknownTriggerEvent(t *testing.T) {
	c := newTestComposer(t)
	_, err := c.Compose(context.Background(), "QQQ_Q99", nil)
	if !errors.Is(err, ErrSchemaNotFound) {
		t.Fatalf("err = %v, want ErrSchemaNotFound", err)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.TriggerEvent != "QQQ_Q99" {
		t.Errorf("err = %v, want *Error carrying the trigger event code", err)
	}
}

func TestComposeRequiredInputMissing(t *testing.T) {
	c := newTestComposer(t)
	input := &Input{Patient: testPatient()} // no prescription
	_, err := c.Compose(context.Background(), "RDE_O11", input)
	if !errors.Is(err, ErrRequiredInputMissing) {
		t.Fatalf("err = %v, want ErrRequiredInputMissing", err)
	}
}

func TestComposeNilInputSynthesizes(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "RDE_O11", nil, WithSeed(7), WithClock(testClock))
	if err != nil {
		t.Fatalf("Compose with nil input: %v", err)
	}
	if !strings.HasPrefix(text, "MSH|") {
		t.Errorf("message does not start with header: %q", text)
	}
}

func TestHeaderInvariants(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "X01", &Input{Patient: testPatient()},
		WithSeed(1), WithClock(testClock), WithSender("SNDAPP", "SNDFAC"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	fields := strings.Split(lines(text)[0], "|")
	if len(fields) != 12 {
		t.Fatalf("header has %d fields, want 12: %q", len(fields), lines(text)[0])
	}
	checks := []struct {
		position int
		want     string
	}{
		{0, "MSH"},
		{1, `^~\&`},
		{2, "SNDAPP"},
		{3, "SNDFAC"},
		{6, "20240301120000"},
		{8, "X01"},
		{10, "P"},
		{11, "2.3"},
	}
	for _, check := range checks {
		if fields[check.position] != check.want {
			t.Errorf("MSH field %d = %q, want %q", check.position+1, fields[check.position], check.want)
		}
	}
	if len(fields[9]) != 12 {
		t.Errorf("control ID %q, want 12 digits", fields[9])
	}
}

func TestComposeX01PlacesPatientName(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "X01", &Input{Patient: testPatient()},
		WithSeed(12345), WithClock(testClock), WithFieldFillRate(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	got := lines(text)
	if len(got) != 4 {
		t.Fatalf("message has %d lines, want 4:\n%s", len(got), text)
	}
	for i, want := range []string{"MSH", "EVN", "PID", "PV1"} {
		if !strings.HasPrefix(got[i], want) {
			t.Errorf("line %d = %q, want segment %s", i, got[i], want)
		}
	}

	pid := strings.Split(got[2], "|")
	if pid[2] != "Doe^John" {
		t.Errorf("PID-2 = %q, want family-given order %q", pid[2], "Doe^John")
	}
	if pid[3] != "19800515" {
		t.Errorf("PID-3 = %q, want %q", pid[3], "19800515")
	}
	if pid[4] != "M" {
		t.Errorf("PID-4 = %q, want patient sex", pid[4])
	}

	pv1 := strings.Split(got[3], "|")
	if pv1[2] != "I" && pv1[2] != "O" && pv1[2] != "E" {
		t.Errorf("PV1-2 = %q, want a code from table 0004", pv1[2])
	}
}

func TestComposeEscapesDelimitersInData(t *testing.T) {
	c := newTestComposer(t)
	patient := testPatient()
	patient.FamilyName = `Pipe|Caret^Name`
	patient.GivenName = `Amp&Tilde~Back\slash`

	text, err := c.Compose(context.Background(), "X01", &Input{Patient: patient},
		WithSeed(12345), WithClock(testClock), WithFieldFillRate(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	got := lines(text)
	pid := strings.Split(got[2], "|")
	if len(pid) != 5 {
		t.Fatalf("PID has %d fields, want 5 (delimiters in data must not add slots):\n%s", len(pid), got[2])
	}
	want := `Pipe\F\Caret\S\Name^Amp\T\Tilde\R\Back\E\slash`
	if pid[2] != want {
		t.Errorf("PID-2 = %q, want %q", pid[2], want)
	}
}

func TestLeafTruncationPrecedesEscaping(t *testing.T) {
	c := newTestComposer(t)
	patient := testPatient()
	patient.FamilyName = "AB|CD"

	opts := DefaultOptions()
	gc := newGenContext(&Input{Patient: patient}, "X01", opts)
	gc.segmentCode = "PID"
	gc.occurrence = 1

	field := schema.FieldDefinition{
		Position: 2, Name: "Family Name", DataTypeCode: "ST",
		Optionality: schema.Required, MaxLength: 4,
	}
	got := c.resolveLeaf(context.Background(), gc, field)
	if got != `AB\F\C` {
		t.Errorf("leaf = %q, want %q (cap applied to raw value, then escaped)", got, `AB\F\C`)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	// "é" is two bytes; a cap landing inside it must back off.
	if got := truncate("Zoé", 3); got != "Zo" {
		t.Errorf("truncate(Zoé, 3) = %q, want %q", got, "Zo")
	}
	if got := truncate("Zoé", 4); got != "Zoé" {
		t.Errorf("truncate(Zoé, 4) = %q, want %q", got, "Zoé")
	}
}

func TestPositionalCompleteness(t *testing.T) {
	c := newTestComposer(t)
	declared := map[string]int{"MSH": 11, "EVN": 2, "PID": 4, "PV1": 2, "NK1": 2, "IN1": 2}

	// zero fill rate leaves optional fields empty; slots must survive
	text, err := c.Compose(context.Background(), "ADT_A01", &Input{Patient: testPatient()},
		WithSeed(9), WithClock(testClock), WithFieldFillRate(0),
		WithSegmentProbability("NK1", 1), WithSegmentProbability("INSURANCE", 1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	for _, line := range lines(text) {
		code := strings.SplitN(line, "|", 2)[0]
		want, ok := declared[code]
		if !ok {
			t.Fatalf("unexpected segment %q", code)
		}
		if got := strings.Count(line, "|"); got != want {
			t.Errorf("%s has %d field separators, want %d: %q", code, got, want, line)
		}
	}
}

func TestGroupContainment(t *testing.T) {
	c := newTestComposer(t)

	excluded, err := c.Compose(context.Background(), "ADT_A01", &Input{Patient: testPatient()},
		WithSeed(3), WithClock(testClock), WithSegmentProbability("INSURANCE", 0))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(excluded, "IN1") {
		t.Errorf("IN1 emitted although its group was excluded:\n%s", excluded)
	}

	included, err := c.Compose(context.Background(), "ADT_A01", &Input{Patient: testPatient()},
		WithSeed(3), WithClock(testClock), WithSegmentProbability("INSURANCE", 1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(included, "IN1") {
		t.Errorf("IN1 missing although its group was included:\n%s", included)
	}
}

func TestSegmentRepeatCount(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "ADT_A01", &Input{Patient: testPatient()},
		WithSeed(5), WithClock(testClock),
		WithSegmentProbability("NK1", 1), WithSegmentRepeatCount("NK1", 2))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	var setIDs []string
	for _, line := range lines(text) {
		if strings.HasPrefix(line, "NK1|") {
			setIDs = append(setIDs, strings.Split(line, "|")[1])
		}
	}
	if len(setIDs) != 2 {
		t.Fatalf("NK1 appears %d times, want 2:\n%s", len(setIDs), text)
	}
	if setIDs[0] != "1" || setIDs[1] != "2" {
		t.Errorf("NK1 set IDs = %v, want [1 2]", setIDs)
	}
}

func TestSegmentRepeatCountZero(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "ADT_A01", &Input{Patient: testPatient()},
		WithSeed(5), WithClock(testClock),
		WithSegmentProbability("NK1", 1), WithSegmentRepeatCount("NK1", 0))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(text, "NK1") {
		t.Errorf("NK1 emitted although its repeat count is 0:\n%s", text)
	}
}

func TestStubSegmentDegradation(t *testing.T) {
	c := newTestComposer(t)
	text, err := c.Compose(context.Background(), "Z01", &Input{Patient: testPatient()},
		WithSeed(1), WithClock(testClock))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	got := lines(text)
	if len(got) != 2 {
		t.Fatalf("message has %d lines, want 2:\n%s", len(got), text)
	}
	if got[1] != "ZZZ" {
		t.Errorf("stub line = %q, want bare segment code ZZZ", got[1])
	}
}

func TestGroupStack(t *testing.T) {
	var s groupStack

	group := schema.SegmentRule{SegmentCode: "G1", IsGroup: true, NestingLevel: 0}
	member := schema.SegmentRule{SegmentCode: "AAA", NestingLevel: 1}
	sibling := schema.SegmentRule{SegmentCode: "BBB", NestingLevel: 0}

	s.sync(group)
	s.push(group, false)
	if !s.suppressed() {
		t.Fatal("excluded group should suppress members")
	}

	s.sync(member)
	if s.depth() != 1 || !s.suppressed() {
		t.Fatalf("member-level sync popped the group frame: depth=%d", s.depth())
	}

	s.sync(sibling)
	if s.depth() != 0 || s.suppressed() {
		t.Fatalf("sibling-level sync should close the group: depth=%d", s.depth())
	}
}

func TestGroupStackNested(t *testing.T) {
	var s groupStack

	outer := schema.SegmentRule{SegmentCode: "OUT", IsGroup: true, NestingLevel: 0}
	inner := schema.SegmentRule{SegmentCode: "IN", IsGroup: true, NestingLevel: 1}
	leaf := schema.SegmentRule{SegmentCode: "LEAF", NestingLevel: 2}

	s.sync(outer)
	s.push(outer, true)
	s.sync(inner)
	s.push(inner, false)
	s.sync(leaf)
	if !s.suppressed() {
		t.Fatal("leaf under excluded inner group should be suppressed")
	}

	// returning to the outer group's member level closes only the inner group
	next := schema.SegmentRule{SegmentCode: "NEXT", NestingLevel: 1}
	s.sync(next)
	if s.depth() != 1 || s.suppressed() {
		t.Fatalf("outer group should remain open and included: depth=%d", s.depth())
	}
}

func TestDefaultPolicyOverrides(t *testing.T) {
	policy := DefaultPolicy{}
	rng := newGenContext(nil, "X01", DefaultOptions()).rng

	always := DefaultOptions()
	always.SegmentProbabilities = map[string]float64{"NK1": 1}
	never := DefaultOptions()
	never.SegmentProbabilities = map[string]float64{"NK1": 0}
	rule := schema.SegmentRule{SegmentCode: "NK1", Optionality: schema.Optional}

	for i := 0; i < 50; i++ {
		if !policy.IncludeSegment(rule, rng, always) {
			t.Fatal("probability 1 should always include")
		}
		if policy.IncludeSegment(rule, rng, never) {
			t.Fatal("probability 0 should never include")
		}
	}

	fixed := DefaultOptions()
	fixed.SegmentRepeatCounts = map[string]int{"OBX": 4}
	obx := schema.SegmentRule{SegmentCode: "OBX", Repeatability: schema.Unbounded}
	for i := 0; i < 10; i++ {
		if got := policy.RepeatCount(obx, rng, fixed); got != 4 {
			t.Fatalf("RepeatCount = %d, want the configured 4", got)
		}
	}
}

func TestKeywordRate(t *testing.T) {
	tests := []struct {
		description string
		want        float64
		ok          bool
	}{
		{"Next of Kin / Associated Parties", 0.5, true},
		{"Patient Allergy Information", 0.7, true},
		{"Insurance", 0.4, true},
		{"Something Unrecognized", 0, false},
	}
	for _, tt := range tests {
		got, ok := keywordRate(tt.description)
		if got != tt.want || ok != tt.ok {
			t.Errorf("keywordRate(%q) = %v,%v, want %v,%v", tt.description, got, ok, tt.want, tt.ok)
		}
	}
}
