package compose

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/resolve"
	"github.com/ConnorBritain/pidgeon/internal/schema"
)

// composeSegment renders one segment line for the given rule occurrence.
// When the segment's schema is absent the line degrades to the bare segment
// code; everything else keeps composing, so a partially loaded schema
// environment still yields addressable output.
func (c *Composer) composeSegment(ctx context.Context, gc *genContext, rule schema.SegmentRule, occurrence int) string {
	seg, err := c.store.Segment(ctx, rule.SegmentCode)
	if err != nil {
		if !errors.Is(err, schema.ErrNotFound) {
			c.logger.Warn("segment schema lookup failed",
				zap.String("segment", rule.SegmentCode),
				zap.Error(err))
		} else {
			c.logger.Warn("segment schema missing, emitting stub",
				zap.String("segment", rule.SegmentCode))
		}
		if c.metrics != nil {
			c.metrics.SegmentsStubbed.WithLabelValues(rule.SegmentCode).Inc()
		}
		return rule.SegmentCode
	}

	gc.segmentCode = seg.Code
	gc.occurrence = occurrence

	sep := string(gc.opts.Delimiters.Field)
	var b strings.Builder
	b.WriteString(seg.Code)
	for _, field := range seg.Fields {
		b.WriteString(sep)
		b.WriteString(c.composeField(ctx, gc, field))
	}

	if c.metrics != nil {
		c.metrics.SegmentsComposed.Inc()
	}
	return b.String()
}

// composeField produces one field value: empty when the optionality policy
// omits it, otherwise resolved as a leaf or recursed through its data type's
// components.
func (c *Composer) composeField(ctx context.Context, gc *genContext, field schema.FieldDefinition) string {
	if field.Optionality != schema.Required && !c.policy.IncludeField(field, gc.rng, gc.opts) {
		return ""
	}

	dt, err := c.store.DataType(ctx, field.DataTypeCode)
	if err != nil || dt.Primitive() {
		// unknown data types resolve as primitives; the fallback resolver
		// treats an unrecognized code as free text
		return c.resolveLeaf(ctx, gc, field)
	}

	compSep := string(gc.opts.Delimiters.Component)
	values := make([]string, len(dt.Components))
	for i, comp := range dt.Components {
		synthetic := schema.FieldDefinition{
			Position:     field.Position,
			Name:         comp.Name,
			DataTypeCode: comp.DataTypeCode,
			Optionality:  comp.Optionality,
			TableID:      comp.TableID,
		}
		if comp.Optionality != schema.Required && !c.policy.IncludeField(synthetic, gc.rng, gc.opts) {
			continue
		}
		values[i] = c.resolveLeaf(ctx, gc, synthetic)
	}

	// trailing empty components carry no information on the wire
	last := len(values)
	for last > 0 && values[last-1] == "" {
		last--
	}
	return strings.Join(values[:last], compSep)
}

// resolveLeaf runs the resolver chain for one primitive value, applying the
// table constraint, escaping, and length cap.
func (c *Composer) resolveLeaf(ctx context.Context, gc *genContext, field schema.FieldDefinition) string {
	req := &resolve.Request{
		SegmentCode: gc.segmentCode,
		Position:    field.Position,
		Occurrence:  gc.occurrence,
		Field:       field,
		MessageType: gc.messageType,
		Version:     gc.opts.Version,
		Now:         gc.now,
		RNG:         gc.rng,
	}
	if gc.input != nil {
		req.Patient = gc.input.Patient
		req.Encounter = gc.input.Encounter
		req.Prescription = gc.input.Prescription
		req.Observation = gc.input.Observation
	}
	if field.TableID != "" {
		table, err := c.store.Table(ctx, field.TableID)
		if err == nil {
			req.Table = table
		} else if !errors.Is(err, schema.ErrNotFound) {
			c.logger.Warn("table lookup failed",
				zap.String("table", field.TableID),
				zap.Error(err))
		}
	}

	value, _ := c.chain.Resolve(req)
	// Cap before escaping: cutting the escaped form could leave a dangling
	// escape fragment on the wire.
	if field.MaxLength > 0 {
		value = truncate(value, field.MaxLength)
	}
	return gc.opts.Delimiters.Escape(value)
}

// truncate caps value at max bytes without splitting a multi-byte rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
