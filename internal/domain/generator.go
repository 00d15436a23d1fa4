package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ConnorBritain/pidgeon/internal/demographics"
)

// Generator synthesizes domain entities from a seeded RNG and the demographic
// reference dataset. All draws go through the supplied RNG, so the same seed
// reproduces the same entities.
type Generator struct {
	source demographics.Source
}

// NewGenerator creates a generator over source. A nil source uses the
// bundled dataset.
func NewGenerator(source demographics.Source) *Generator {
	if source == nil {
		source = demographics.Default()
	}
	return &Generator{source: source}
}

// reference time for synthetic birth dates and visit times; fixed so output
// depends only on the seed.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func digits(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + rng.Intn(10))
	}
	return string(b)
}

// Patient generates a synthetic patient.
func (g *Generator) Patient(rng *rand.Rand) *Patient {
	sexes := []string{SexFemale, SexMale}
	age := 1 + rng.Intn(94)
	birth := epoch.AddDate(-age, 0, -rng.Intn(365))

	return &Patient{
		MRN:        "MRN" + digits(rng, 8),
		FamilyName: g.source.FamilyName(rng),
		GivenName:  g.source.GivenName(rng),
		Sex:        sexes[rng.Intn(len(sexes))],
		BirthDate:  birth,
		Street:     g.source.StreetAddress(rng),
		City:       g.source.City(rng),
		State:      g.source.State(rng),
		PostalCode: g.source.PostalCode(rng),
		Phone:      fmt.Sprintf("(%s)%s-%s", digits(rng, 3), digits(rng, 3), digits(rng, 4)),
		AccountNo:  "ACC" + digits(rng, 8),
	}
}

// Encounter generates a synthetic visit.
func (g *Generator) Encounter(rng *rand.Rand) *Encounter {
	classes := []string{"I", "O", "E"}
	wards := []string{"2NORTH", "3WEST", "ICU", "ED", "MEDSURG"}
	rooms := fmt.Sprintf("%s^%d^%d", wards[rng.Intn(len(wards))], 100+rng.Intn(400), 1+rng.Intn(2))

	return &Encounter{
		VisitNumber:     "V" + digits(rng, 9),
		PatientClass:    classes[rng.Intn(len(classes))],
		Location:        rooms,
		AttendingFamily: g.source.FamilyName(rng),
		AttendingGiven:  g.source.GivenName(rng),
		AttendingID:     digits(rng, 10),
		AdmitTime:       epoch.Add(time.Duration(rng.Intn(365*24)) * time.Hour),
	}
}

// commonly ordered medications, NDC-style code plus label.
var medications = []struct{ code, name, dose, units, route, freq string }{
	{"00093-1041", "LISINOPRIL 10MG TAB", "10", "MG", "PO", "QD"},
	{"00378-1805", "METFORMIN 500MG TAB", "500", "MG", "PO", "BID"},
	{"00781-1506", "ATORVASTATIN 20MG TAB", "20", "MG", "PO", "QHS"},
	{"00054-0450", "AMOXICILLIN 500MG CAP", "500", "MG", "PO", "TID"},
	{"00173-0682", "ALBUTEROL HFA INHALER", "90", "MCG", "INH", "Q4H PRN"},
	{"00006-0749", "LOSARTAN 50MG TAB", "50", "MG", "PO", "QD"},
}

// Prescription generates a synthetic pharmacy order.
func (g *Generator) Prescription(rng *rand.Rand) *Prescription {
	med := medications[rng.Intn(len(medications))]
	return &Prescription{
		OrderNumber:  "RX" + digits(rng, 8),
		DrugCode:     med.code,
		DrugName:     med.name,
		DoseAmount:   med.dose,
		DoseUnits:    med.units,
		Route:        med.route,
		Frequency:    med.freq,
		Quantity:     30 * (1 + rng.Intn(3)),
		Refills:      rng.Intn(6),
		WrittenAt:    epoch.Add(time.Duration(rng.Intn(365*24)) * time.Hour),
		PrescriberID: digits(rng, 10),
	}
}

// common lab panels with plausible value ranges.
var labTests = []struct {
	code, name, units, refRange string
	low, high                   float64
}{
	{"2345-7", "GLUCOSE", "MG/DL", "70-99", 60, 180},
	{"718-7", "HEMOGLOBIN", "G/DL", "13.5-17.5", 10, 19},
	{"2160-0", "CREATININE", "MG/DL", "0.7-1.3", 0.4, 2.5},
	{"2823-3", "POTASSIUM", "MMOL/L", "3.5-5.1", 2.9, 6.2},
	{"3094-0", "BUN", "MG/DL", "7-20", 4, 40},
}

// Observation generates a synthetic lab result.
func (g *Generator) Observation(rng *rand.Rand) *Observation {
	test := labTests[rng.Intn(len(labTests))]
	value := test.low + rng.Float64()*(test.high-test.low)

	flag := ""
	// crude in-range check against the printed reference range bounds
	var lo, hi float64
	if _, err := fmt.Sscanf(test.refRange, "%f-%f", &lo, &hi); err == nil {
		switch {
		case value < lo:
			flag = "L"
		case value > hi:
			flag = "H"
		}
	}

	return &Observation{
		FillerOrderNo:  "LAB" + digits(rng, 8),
		TestCode:       test.code,
		TestName:       test.name,
		Value:          fmt.Sprintf("%.1f", value),
		Units:          test.units,
		ReferenceRange: test.refRange,
		AbnormalFlag:   flag,
		ObservedAt:     epoch.Add(time.Duration(rng.Intn(365*24)) * time.Hour),
	}
}
