// Package demographics supplies reference demographic data for synthetic
// patients. Values are drawn from fixed datasets so generated names and
// addresses look real without belonging to anyone.
package demographics

import "math/rand"

// Source provides demographic reference lookups. Every accessor takes the
// caller's RNG so draws stay on the composition's seeded stream.
type Source interface {
	GivenName(rng *rand.Rand) string
	FamilyName(rng *rand.Rand) string
	StreetAddress(rng *rand.Rand) string
	City(rng *rand.Rand) string
	State(rng *rand.Rand) string
	PostalCode(rng *rand.Rand) string
}

// Dataset is an in-memory Source backed by fixed slices.
type Dataset struct {
	GivenNames  []string
	FamilyNames []string
	Streets     []string
	Cities      []string
	States      []string
}

// Default returns the bundled reference dataset, drawn from census-frequency
// name lists and generic street/city names.
func Default() *Dataset {
	return &Dataset{
		GivenNames: []string{
			"James", "Mary", "Robert", "Patricia", "John", "Jennifer",
			"Michael", "Linda", "David", "Elizabeth", "William", "Barbara",
			"Richard", "Susan", "Joseph", "Jessica", "Thomas", "Karen",
			"Christopher", "Sarah", "Charles", "Lisa", "Daniel", "Nancy",
			"Matthew", "Sandra", "Anthony", "Betty", "Mark", "Ashley",
		},
		FamilyNames: []string{
			"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
			"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
			"Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
			"Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
			"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
		},
		Streets: []string{
			"100 Main St", "245 Oak Ave", "12 Maple Dr", "780 Cedar Ln",
			"455 Elm St", "3200 Park Blvd", "67 Washington Ave", "910 Lake Rd",
			"18 Hillcrest Dr", "520 River St", "1400 Sunset Blvd", "33 Church St",
		},
		Cities: []string{
			"Springfield", "Franklin", "Clinton", "Greenville", "Bristol",
			"Fairview", "Salem", "Madison", "Georgetown", "Arlington",
			"Ashland", "Dover", "Oxford", "Jackson", "Milton",
		},
		States: []string{
			"AL", "CA", "CO", "FL", "GA", "IL", "MA", "MI", "NC", "NY",
			"OH", "PA", "TN", "TX", "VA", "WA",
		},
	}
}

func pick(rng *rand.Rand, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[rng.Intn(len(values))]
}

// GivenName returns a random given name.
func (d *Dataset) GivenName(rng *rand.Rand) string { return pick(rng, d.GivenNames) }

// FamilyName returns a random family name.
func (d *Dataset) FamilyName(rng *rand.Rand) string { return pick(rng, d.FamilyNames) }

// StreetAddress returns a random street address line.
func (d *Dataset) StreetAddress(rng *rand.Rand) string { return pick(rng, d.Streets) }

// City returns a random city name.
func (d *Dataset) City(rng *rand.Rand) string { return pick(rng, d.Cities) }

// State returns a random two-letter state code.
func (d *Dataset) State(rng *rand.Rand) string { return pick(rng, d.States) }

// PostalCode returns a random five-digit ZIP code.
func (d *Dataset) PostalCode(rng *rand.Rand) string {
	digits := make([]byte, 5)
	for i := range digits {
		digits[i] = byte('0' + rng.Intn(10))
	}
	return string(digits)
}
