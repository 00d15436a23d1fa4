package compose

import (
	"math/rand"
	"strings"

	"github.com/ConnorBritain/pidgeon/internal/schema"
)

// Policy decides which optional schema elements a composition realizes and
// how often repeatable ones repeat. It shapes realism, not wire validity:
// whatever it decides, the emitted message stays positionally correct.
// Implementations must draw all randomness from the rng they are handed.
type Policy interface {
	// IncludeSegment decides whether an Optional or Conditional segment
	// rule is realized. Never consulted for Required rules.
	IncludeSegment(rule schema.SegmentRule, rng *rand.Rand, opts *Options) bool

	// RepeatCount returns how many occurrences an included Unbounded rule
	// emits. Counts from opts.SegmentRepeatCounts are honored verbatim,
	// including zero.
	RepeatCount(rule schema.SegmentRule, rng *rand.Rand, opts *Options) int

	// IncludeField decides whether an Optional field or component is
	// populated. Never consulted for Required elements.
	IncludeField(field schema.FieldDefinition, rng *rand.Rand, opts *Options) bool
}

// DefaultPolicy realizes optional content at rates that mimic production
// traffic: allergy and diagnosis segments show up often, insurance and
// next-of-kin less so. All rates yield to explicit per-segment overrides in
// the options.
type DefaultPolicy struct{}

// inclusion rates by descriptive keyword; a flat default covers the rest.
var inclusionHints = []struct {
	keywords    []string
	probability float64
}{
	{[]string{"allergy", "allergies"}, 0.7},
	{[]string{"diagnosis", "problem"}, 0.8},
	{[]string{"next of kin", "associated parties"}, 0.5},
	{[]string{"insurance", "guarantor"}, 0.4},
	{[]string{"note", "comment"}, 0.3},
	{[]string{"observation", "result"}, 0.9},
}

const defaultInclusionRate = 0.5

func (DefaultPolicy) IncludeSegment(rule schema.SegmentRule, rng *rand.Rand, opts *Options) bool {
	p := defaultInclusionRate
	if hint, ok := opts.SegmentProbabilities[rule.SegmentCode]; ok {
		p = hint
	} else if byKeyword, ok := keywordRate(rule.Description); ok {
		p = byKeyword
	}
	return rng.Float64() < p
}

func keywordRate(description string) (float64, bool) {
	text := strings.ToLower(description)
	for _, h := range inclusionHints {
		for _, k := range h.keywords {
			if strings.Contains(text, k) {
				return h.probability, true
			}
		}
	}
	return 0, false
}

func (DefaultPolicy) RepeatCount(rule schema.SegmentRule, rng *rand.Rand, opts *Options) int {
	if n, ok := opts.SegmentRepeatCounts[rule.SegmentCode]; ok {
		return n
	}
	text := strings.ToLower(rule.Description)
	switch {
	case strings.Contains(text, "observation") || strings.Contains(text, "result"):
		return 1 + rng.Intn(5)
	case strings.Contains(text, "next of kin") || strings.Contains(text, "contact"):
		return 1 + rng.Intn(2)
	default:
		return 1 + rng.Intn(3)
	}
}

func (DefaultPolicy) IncludeField(field schema.FieldDefinition, rng *rand.Rand, opts *Options) bool {
	return rng.Float64() < opts.FieldFillRate
}
