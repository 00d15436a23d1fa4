package resolve

import (
	"strconv"
	"time"

	"github.com/ConnorBritain/pidgeon/internal/hl7"
)

// FallbackResolver is the chain's terminal safety net: it never abstains.
// A table constraint wins over everything else, since table membership is a
// legality requirement; after that, dispatch is on the declared data type
// plus keyword matching on the field name.
type FallbackResolver struct{}

// Name implements Resolver.
func (r *FallbackResolver) Name() string { return "fallback" }

// Priority implements Resolver.
func (r *FallbackResolver) Priority() int { return PriorityFallback }

// Resolve implements Resolver.
func (r *FallbackResolver) Resolve(req *Request) (string, bool) {
	if req.Table != nil && len(req.Table.Entries) > 0 {
		codes := req.Table.Codes()
		return codes[req.RNG.Intn(len(codes))], true
	}

	name := req.nameText()
	if containsAny(name, "set id") {
		if req.Occurrence > 0 {
			return strconv.Itoa(req.Occurrence), true
		}
		return "1", true
	}

	switch req.Field.DataTypeCode {
	case "NM":
		return strconv.Itoa(1 + req.RNG.Intn(999)), true
	case "SI":
		return "1", true
	case "DT":
		return hl7.FormatDate(randomPastTime(req)), true
	case "TM":
		return hl7.FormatTime(randomPastTime(req)), true
	case "TS", "DTM":
		return hl7.FormatTimestamp(randomPastTime(req)), true
	case "ID", "IS", "CWE", "CE", "CNE":
		// coded field without a table: short synthetic code
		return codeToken(req), true
	}

	switch {
	case containsAny(name, "comment", "note", "text"):
		return "GENERATED ENTRY", true
	case containsAny(name, "name"):
		return nameToken(req), true
	}

	return "X" + randomDigits(req.RNG, 6), true
}

// randomPastTime draws a moment within the year before the composition time.
func randomPastTime(req *Request) time.Time {
	offset := time.Duration(req.RNG.Intn(365*24)) * time.Hour
	return req.Now.Add(-offset)
}

func codeToken(req *Request) string {
	letters := make([]byte, 2)
	for i := range letters {
		letters[i] = byte('A' + req.RNG.Intn(26))
	}
	return string(letters) + randomDigits(req.RNG, 2)
}

func nameToken(req *Request) string {
	letters := make([]byte, 6)
	for i := range letters {
		letters[i] = byte('A' + req.RNG.Intn(26))
	}
	return string(letters)
}
