package resolve

// IdentifierResolver supplies fields whose name indicates an identifier
// class. Context entities win when they carry the matching identifier;
// otherwise a format-appropriate synthetic one is generated (fixed prefix
// plus random digits) instead of an arbitrary string.
type IdentifierResolver struct{}

// Name implements Resolver.
func (r *IdentifierResolver) Name() string { return "identifier" }

// Priority implements Resolver.
func (r *IdentifierResolver) Priority() int { return PriorityIdentifier }

// Resolve implements Resolver.
func (r *IdentifierResolver) Resolve(req *Request) (string, bool) {
	name := req.nameText()

	switch {
	case containsAny(name, "medical record number", "patient identifier list", "patient id"):
		if req.Patient != nil && req.Patient.MRN != "" {
			return req.Patient.MRN, true
		}
		return "MRN" + randomDigits(req.RNG, 8), true

	case containsAny(name, "account number"):
		if req.Patient != nil && req.Patient.AccountNo != "" {
			return req.Patient.AccountNo, true
		}
		return "ACC" + randomDigits(req.RNG, 8), true

	case containsAny(name, "visit number"):
		if req.Encounter != nil && req.Encounter.VisitNumber != "" {
			return req.Encounter.VisitNumber, true
		}
		return "V" + randomDigits(req.RNG, 9), true

	case containsAny(name, "filler order number"):
		if req.Observation != nil && req.Observation.FillerOrderNo != "" {
			return req.Observation.FillerOrderNo, true
		}
		return "FIL" + randomDigits(req.RNG, 8), true

	case containsAny(name, "placer order number", "order number"):
		if req.Prescription != nil && req.Prescription.OrderNumber != "" {
			return req.Prescription.OrderNumber, true
		}
		return "ORD" + randomDigits(req.RNG, 8), true

	case containsAny(name, "license number", "driver's license"):
		return "LIC" + randomDigits(req.RNG, 7), true

	case containsAny(name, "social security"):
		// synthetic SSN in the 900 range, never a valid issued number
		return "900" + randomDigits(req.RNG, 6), true

	case containsAny(name, "provider number", "prescriber id", "attending doctor", "ordering provider"):
		if req.Encounter != nil && req.Encounter.AttendingID != "" {
			return req.Encounter.AttendingID, true
		}
		return randomDigits(req.RNG, 10), true
	}

	return "", false
}
