package compose

import (
	"math/rand"
	"time"

	"github.com/ConnorBritain/pidgeon/internal/domain"
)

// Input is the domain context a caller supplies for one message: the business
// entities the message should describe. Nil entity pointers mean "not
// provided"; whether that is fatal depends on the message type (see catalog).
// A nil Input asks the composer to generate a full synthetic context.
type Input struct {
	Patient      *domain.Patient
	Encounter    *domain.Encounter
	Prescription *domain.Prescription
	Observation  *domain.Observation
}

// genContext is the per-composition state threaded through one Compose call.
// Exactly one composition owns it; nothing here is shared.
type genContext struct {
	input       *Input
	messageType string
	segmentCode string // segment currently being composed
	occurrence  int    // 1-based repeat index of that segment
	now         time.Time
	rng         *rand.Rand
	opts        *Options
}

// newGenContext samples the clock once so every timestamp within one message
// agrees.
func newGenContext(input *Input, messageType string, opts *Options) *genContext {
	return &genContext{
		input:       input,
		messageType: messageType,
		now:         opts.Now(),
		rng:         rand.New(rand.NewSource(opts.Seed)),
		opts:        opts,
	}
}
