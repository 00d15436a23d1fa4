package resolve

import (
	"github.com/google/uuid"

	"github.com/ConnorBritain/pidgeon/internal/hl7"
)

// FormatResolver supplies fields whose values are dictated by the wire format
// itself: version identifiers, message type, control IDs, processing codes,
// and message-level timestamps. It sits at the top of the chain so generic
// heuristics can never override format-mandated values.
type FormatResolver struct{}

// Name implements Resolver.
func (r *FormatResolver) Name() string { return "format" }

// Priority implements Resolver.
func (r *FormatResolver) Priority() int { return PriorityFormat }

// Resolve implements Resolver.
func (r *FormatResolver) Resolve(req *Request) (string, bool) {
	name := req.nameText()

	switch {
	case containsAny(name, "version id", "version of", "version"):
		if req.Version != "" {
			return req.Version, true
		}
		return "", false

	case containsAny(name, "message type"):
		return req.MessageType, true

	case containsAny(name, "message control id", "control id"):
		return controlID(req), true

	case containsAny(name, "processing id"):
		return "P", true

	case containsAny(name, "date/time of message", "date time of message", "recorded date/time", "recorded date time", "date/time of event", "event occurred"):
		return hl7.FormatTimestamp(req.Now), true

	case containsAny(name, "event type code"):
		// ADT_A01 -> A01
		if i := lastSep(req.MessageType); i >= 0 {
			return req.MessageType[i+1:], true
		}
		return "", false
	}

	return "", false
}

// controlID generates a control identifier from the composition's RNG so a
// fixed seed yields a fixed ID. Falls back to a fresh UUID when no RNG is
// supplied.
func controlID(req *Request) string {
	if req.RNG != nil {
		return randomDigits(req.RNG, 12)
	}
	return uuid.New().String()
}

func lastSep(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '^' || s[i] == '_' {
			return i
		}
	}
	return -1
}
