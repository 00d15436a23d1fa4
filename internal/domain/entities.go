// Package domain defines the business entities available to one message
// composition (patient, encounter, prescription, observation) and
// deterministic generators that synthesize them from a seeded RNG.
package domain

import "time"

// Sex codes from HL7 table 0001.
const (
	SexFemale  = "F"
	SexMale    = "M"
	SexOther   = "O"
	SexUnknown = "U"
)

// Patient is the subject of a message.
type Patient struct {
	MRN        string
	FamilyName string
	GivenName  string
	Sex        string
	BirthDate  time.Time
	Street     string
	City       string
	State      string
	PostalCode string
	Phone      string
	AccountNo  string
}

// Encounter is one patient visit.
type Encounter struct {
	VisitNumber     string
	PatientClass    string // table 0004: I, O, E...
	Location        string
	AttendingFamily string
	AttendingGiven  string
	AttendingID     string
	AdmitTime       time.Time
}

// Prescription is one pharmacy order.
type Prescription struct {
	OrderNumber  string
	DrugCode     string
	DrugName     string
	DoseAmount   string
	DoseUnits    string
	Route        string
	Frequency    string
	Quantity     int
	Refills      int
	WrittenAt    time.Time
	PrescriberID string
}

// Observation is one result value.
type Observation struct {
	FillerOrderNo  string
	TestCode       string
	TestName       string
	Value          string
	Units          string
	ReferenceRange string
	AbnormalFlag   string
	ObservedAt     time.Time
}
