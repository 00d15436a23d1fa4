package resolve

import (
	"github.com/ConnorBritain/pidgeon/internal/demographics"
	"github.com/ConnorBritain/pidgeon/internal/hl7"
)

type demographicSource = demographics.Source

// DemographicResolver supplies patient-identity-shaped fields. Values come
// from the context's patient when one is present, otherwise from the
// demographic reference dataset, so generated identities look real without
// being real.
type DemographicResolver struct {
	source demographics.Source
}

// NewDemographicResolver creates the resolver. A nil source uses the bundled
// dataset.
func NewDemographicResolver(source demographics.Source) *DemographicResolver {
	if source == nil {
		source = demographics.Default()
	}
	return &DemographicResolver{source: source}
}

// Name implements Resolver.
func (r *DemographicResolver) Name() string { return "demographic" }

// Priority implements Resolver.
func (r *DemographicResolver) Priority() int { return PriorityDemographic }

// Resolve implements Resolver.
func (r *DemographicResolver) Resolve(req *Request) (string, bool) {
	name := req.nameText()
	p := req.Patient

	switch {
	case containsAny(name, "family name", "last name", "surname"):
		if p != nil {
			return p.FamilyName, true
		}
		return r.source.FamilyName(req.RNG), true

	case containsAny(name, "given name", "first name"):
		if p != nil {
			return p.GivenName, true
		}
		return r.source.GivenName(req.RNG), true

	case containsAny(name, "date/time of birth", "date of birth", "birth date", "dob"):
		if p != nil {
			return hl7.FormatDate(p.BirthDate), true
		}
		return "", false

	case containsAny(name, "administrative sex", "sex", "gender"):
		if p != nil {
			return p.Sex, true
		}
		return "", false

	case containsAny(name, "street address", "street"):
		if p != nil {
			return p.Street, true
		}
		return r.source.StreetAddress(req.RNG), true

	case containsAny(name, "city"):
		if p != nil {
			return p.City, true
		}
		return r.source.City(req.RNG), true

	case containsAny(name, "state or province", "state"):
		if p != nil {
			return p.State, true
		}
		return r.source.State(req.RNG), true

	case containsAny(name, "zip", "postal code"):
		if p != nil {
			return p.PostalCode, true
		}
		return r.source.PostalCode(req.RNG), true

	case containsAny(name, "phone number", "phone", "telecom"):
		if p != nil {
			return p.Phone, true
		}
		return "", false
	}

	return "", false
}
