package compose

import (
	"fmt"
	"strings"

	"github.com/ConnorBritain/pidgeon/internal/domain"
)

// entityNeeds describes which domain entities a message family consumes.
// Patient is implied for every family; the flags below are the extras.
type entityNeeds struct {
	encounter    bool
	prescription bool
	observation  bool
}

// needsFor classifies a trigger-event code (e.g. "ADT_A01", "RDE_O11") by its
// message-type prefix. Unknown prefixes get patient plus encounter, which is
// the common shape for clinical messages.
func needsFor(triggerEvent string) entityNeeds {
	prefix := triggerEvent
	if i := strings.IndexAny(prefix, "_^"); i > 0 {
		prefix = prefix[:i]
	}
	switch strings.ToUpper(prefix) {
	case "ADT", "SIU", "DFT":
		return entityNeeds{encounter: true}
	case "RDE", "RDS", "OMP", "RGV":
		return entityNeeds{encounter: true, prescription: true}
	case "ORU", "ORM", "OML", "OUL":
		return entityNeeds{encounter: true, observation: true}
	case "VXU", "MDM":
		return entityNeeds{}
	default:
		return entityNeeds{encounter: true}
	}
}

// checkInput verifies a caller-supplied Input carries the entity the message
// is about: a pharmacy order without a prescription, or a result message
// without an observation, cannot be composed meaningfully. Patient and
// encounter are not checked here; completeInput synthesizes them when absent.
func checkInput(input *Input, triggerEvent string) error {
	needs := needsFor(triggerEvent)
	if needs.prescription && input.Prescription == nil {
		return fmt.Errorf("%w: prescription for %s", ErrRequiredInputMissing, triggerEvent)
	}
	if needs.observation && input.Observation == nil {
		return fmt.Errorf("%w: observation for %s", ErrRequiredInputMissing, triggerEvent)
	}
	return nil
}

// completeInput fills any entity the message family needs that the caller did
// not provide, drawing from the composition's RNG so the result is
// reproducible for a given seed. The caller's entities are never replaced.
func (c *Composer) completeInput(gc *genContext, triggerEvent string) {
	needs := needsFor(triggerEvent)
	gen := domain.NewGenerator(c.demographics)

	if gc.input == nil {
		gc.input = &Input{}
	}
	if gc.input.Patient == nil {
		gc.input.Patient = gen.Patient(gc.rng)
	}
	if needs.encounter && gc.input.Encounter == nil {
		gc.input.Encounter = gen.Encounter(gc.rng)
	}
	if needs.prescription && gc.input.Prescription == nil {
		gc.input.Prescription = gen.Prescription(gc.rng)
	}
	if needs.observation && gc.input.Observation == nil {
		gc.input.Observation = gen.Observation(gc.rng)
	}
}
