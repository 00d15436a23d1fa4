package demographics

import (
	"math/rand"
	"testing"
)

func TestDeterministicDraws(t *testing.T) {
	d := Default()

	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		if d.GivenName(a) != d.GivenName(b) {
			t.Fatal("same seed produced different given names")
		}
		if d.FamilyName(a) != d.FamilyName(b) {
			t.Fatal("same seed produced different family names")
		}
		if d.PostalCode(a) != d.PostalCode(b) {
			t.Fatal("same seed produced different postal codes")
		}
	}
}

func TestDrawsComeFromDataset(t *testing.T) {
	d := Default()
	rng := rand.New(rand.NewSource(7))

	inSet := func(v string, set []string) bool {
		for _, s := range set {
			if s == v {
				return true
			}
		}
		return false
	}

	for i := 0; i < 20; i++ {
		if v := d.GivenName(rng); !inSet(v, d.GivenNames) {
			t.Errorf("given name %q not in dataset", v)
		}
		if v := d.City(rng); !inSet(v, d.Cities) {
			t.Errorf("city %q not in dataset", v)
		}
		if v := d.State(rng); len(v) != 2 {
			t.Errorf("state %q not a two-letter code", v)
		}
	}
}

func TestPostalCodeShape(t *testing.T) {
	d := Default()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 20; i++ {
		zip := d.PostalCode(rng)
		if len(zip) != 5 {
			t.Fatalf("zip %q not five digits", zip)
		}
		for _, c := range zip {
			if c < '0' || c > '9' {
				t.Fatalf("zip %q contains non-digit", zip)
			}
		}
	}
}
