package compose

import (
	"time"

	"github.com/ConnorBritain/pidgeon/internal/hl7"
)

// Options configures one composition call. Read-only once Compose begins.
type Options struct {
	// Seed drives every random draw of the composition. The same seed with
	// the same schema and domain inputs produces byte-identical output.
	Seed int64

	// Now supplies the composition's wall clock (header timestamp, relative
	// dates). Injected so tests can pin it.
	Now func() time.Time

	// Delimiters for the target wire format.
	Delimiters hl7.Delimiters

	// Version is the standard version written to the header (e.g. "2.3").
	Version string

	// Header identity fields (MSH-3..6) and processing mode (MSH-11).
	SendingApplication   string
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
	ProcessingID         string

	// SegmentProbabilities overrides the inclusion probability per segment
	// code for Optional/Conditional rules.
	SegmentProbabilities map[string]float64

	// SegmentRepeatCounts fixes the repeat count per segment code, used
	// verbatim (including 0 and 1) for repeatable rules.
	SegmentRepeatCounts map[string]int

	// FieldFillRate is the probability an Optional field or component is
	// populated rather than left empty. Models real-world sparse data.
	FieldFillRate float64
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the baseline configuration: HL7 default delimiters,
// version 2.3, live clock, seed 0.
func DefaultOptions() *Options {
	return &Options{
		Now:                  time.Now,
		Delimiters:           hl7.Default(),
		Version:              "2.3",
		SendingApplication:   "PIDGEON",
		SendingFacility:      "PIDGEONFAC",
		ReceivingApplication: "RCVAPP",
		ReceivingFacility:    "RCVFAC",
		ProcessingID:         "P",
		FieldFillRate:        0.7,
	}
}

// WithSeed sets the deterministic RNG seed.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithClock sets the composition clock.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithDelimiters sets the wire-format delimiter set.
func WithDelimiters(d hl7.Delimiters) Option {
	return func(o *Options) { o.Delimiters = d }
}

// WithVersion sets the standard version written to the header.
func WithVersion(v string) Option {
	return func(o *Options) { o.Version = v }
}

// WithSender sets MSH-3 and MSH-4.
func WithSender(app, facility string) Option {
	return func(o *Options) {
		o.SendingApplication = app
		o.SendingFacility = facility
	}
}

// WithReceiver sets MSH-5 and MSH-6.
func WithReceiver(app, facility string) Option {
	return func(o *Options) {
		o.ReceivingApplication = app
		o.ReceivingFacility = facility
	}
}

// WithProcessingID sets MSH-11.
func WithProcessingID(id string) Option {
	return func(o *Options) { o.ProcessingID = id }
}

// WithSegmentProbability sets the inclusion probability for one segment code.
func WithSegmentProbability(segmentCode string, p float64) Option {
	return func(o *Options) {
		if o.SegmentProbabilities == nil {
			o.SegmentProbabilities = make(map[string]float64)
		}
		o.SegmentProbabilities[segmentCode] = p
	}
}

// WithSegmentRepeatCount fixes the repeat count for one segment code.
func WithSegmentRepeatCount(segmentCode string, n int) Option {
	return func(o *Options) {
		if o.SegmentRepeatCounts == nil {
			o.SegmentRepeatCounts = make(map[string]int)
		}
		o.SegmentRepeatCounts[segmentCode] = n
	}
}

// WithFieldFillRate sets the probability an optional field is populated.
func WithFieldFillRate(p float64) Option {
	return func(o *Options) { o.FieldFillRate = p }
}

// Profile is a named vendor profile: a bundle of option adjustments that
// mimic how a particular sending system populates messages.
type Profile struct {
	Name            string
	SendingApp      string
	SendingFacility string
	FieldFillRate   float64
}

// Predefined vendor profiles. Dense fills most optional fields the way large
// inpatient systems do; Sparse mimics minimalist interface engines.
var (
	ProfileDense  = Profile{Name: "dense", SendingApp: "PIDGEON", SendingFacility: "GENHOSP", FieldFillRate: 0.9}
	ProfileSparse = Profile{Name: "sparse", SendingApp: "PIDGEON", SendingFacility: "CLINIC", FieldFillRate: 0.4}
)

// WithProfile applies a vendor profile.
func WithProfile(p Profile) Option {
	return func(o *Options) {
		if p.SendingApp != "" {
			o.SendingApplication = p.SendingApp
		}
		if p.SendingFacility != "" {
			o.SendingFacility = p.SendingFacility
		}
		if p.FieldFillRate > 0 {
			o.FieldFillRate = p.FieldFillRate
		}
	}
}
