package domain

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestPatientDeterminism(t *testing.T) {
	g := NewGenerator(nil)

	a := g.Patient(rand.New(rand.NewSource(12345)))
	b := g.Patient(rand.New(rand.NewSource(12345)))
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different patients:\n%+v\n%+v", a, b)
	}

	c := g.Patient(rand.New(rand.NewSource(54321)))
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical patients")
	}
}

func TestPatientShape(t *testing.T) {
	g := NewGenerator(nil)
	p := g.Patient(rand.New(rand.NewSource(1)))

	if p.MRN == "" || p.FamilyName == "" || p.GivenName == "" {
		t.Errorf("incomplete patient: %+v", p)
	}
	if p.Sex != SexFemale && p.Sex != SexMale {
		t.Errorf("unexpected sex code %q", p.Sex)
	}
	if p.BirthDate.After(epoch) {
		t.Errorf("birth date in the future: %v", p.BirthDate)
	}
}

func TestPrescriptionShape(t *testing.T) {
	g := NewGenerator(nil)
	rx := g.Prescription(rand.New(rand.NewSource(2)))

	if rx.OrderNumber == "" || rx.DrugCode == "" || rx.DrugName == "" {
		t.Errorf("incomplete prescription: %+v", rx)
	}
	if rx.Quantity <= 0 {
		t.Errorf("quantity = %d", rx.Quantity)
	}
	if rx.Refills < 0 || rx.Refills > 5 {
		t.Errorf("refills = %d", rx.Refills)
	}
}

func TestObservationFlagMatchesRange(t *testing.T) {
	g := NewGenerator(nil)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 100; i++ {
		obs := g.Observation(rng)
		if obs.AbnormalFlag != "" && obs.AbnormalFlag != "L" && obs.AbnormalFlag != "H" {
			t.Errorf("unexpected abnormal flag %q", obs.AbnormalFlag)
		}
		if obs.Value == "" || obs.Units == "" {
			t.Errorf("incomplete observation: %+v", obs)
		}
	}
}

func TestEncounterDeterminism(t *testing.T) {
	g := NewGenerator(nil)
	a := g.Encounter(rand.New(rand.NewSource(9)))
	b := g.Encounter(rand.New(rand.NewSource(9)))
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different encounters:\n%+v\n%+v", a, b)
	}
}
