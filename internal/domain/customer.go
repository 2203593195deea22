package domain

import (
	"strings"
	"time"
)

// CustomerSnapshot is one cleaned customer attribute record from a load
// cycle. The upstream feed delivers at most one snapshot per customer
// per load.
type CustomerSnapshot struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Age              int
	State            string
	CardType         string
	CreditLimit      float64
	EmploymentStatus string
	AccountOpenDate  time.Time
	EffectiveDate    time.Time
	IngestedAt       time.Time
	SourceFile       string
}

// CustomerVersion is one row of the historized customer dimension:
// a customer's attributes over one validity interval. Versions for the
// same customer form a contiguous, non-overlapping sequence; exactly
// one version per customer is current (ValidTo == nil).
type CustomerVersion struct {
	CustomerKey      string // surrogate, unique per version
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Age              int
	State            string
	CardType         string
	CreditLimit      float64
	EmploymentStatus string
	AccountOpenDate  time.Time
	ValidFrom        time.Time
	ValidTo          *time.Time // nil for the open version
	IsCurrent        bool
	UpdatedAt        time.Time
}

// TrackedAttributesEqual reports whether the snapshot matches this
// version on the attributes that are historized (type 2). A difference
// in any of these closes the version and opens a new one; the
// remaining attributes are overwritten in place (type 1).
func (v CustomerVersion) TrackedAttributesEqual(s CustomerSnapshot) bool {
	return v.CardType == s.CardType &&
		v.CreditLimit == s.CreditLimit &&
		strings.EqualFold(v.State, s.State) &&
		v.EmploymentStatus == s.EmploymentStatus
}

// FullName joins the name parts for profile output.
func (v CustomerVersion) FullName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}
