package domain

import (
	"fmt"
	"strings"
	"time"
)

// DonationDeferral is the minimum gap between two whole-blood donations.
const DonationDeferral = 56 * 24 * time.Hour

const (
	MinDonationUnits = 1
	MaxDonationUnits = 4
)

// BloodGroup is an ABO/Rh blood group.
type BloodGroup string

const (
	BloodAPos  BloodGroup = "A+"
	BloodANeg  BloodGroup = "A-"
	BloodBPos  BloodGroup = "B+"
	BloodBNeg  BloodGroup = "B-"
	BloodABPos BloodGroup = "AB+"
	BloodABNeg BloodGroup = "AB-"
	BloodOPos  BloodGroup = "O+"
	BloodONeg  BloodGroup = "O-"
)

func BloodGroups() []BloodGroup {
	return []BloodGroup{BloodAPos, BloodANeg, BloodBPos, BloodBNeg, BloodABPos, BloodABNeg, BloodOPos, BloodONeg}
}

func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups() {
		if g == known {
			return true
		}
	}
	return false
}

func (g *BloodGroup) UnmarshalText(text []byte) error {
	parsed, err := ParseBloodGroup(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseBloodGroup normalizes s ("ab+", " O- ") into a BloodGroup.
func ParseBloodGroup(s string) (BloodGroup, error) {
	g := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", NewError(ErrCodeInvalid, fmt.Sprintf("unknown blood group %q", s))
	}
	return g, nil
}

// Donation is one entry of a donor's blood donation history.
type Donation struct {
	ID         string     `json:"id"`
	DonorID    string     `json:"donor_id"`
	RecordedBy string     `json:"recorded_by"`
	BloodGroup BloodGroup `json:"blood_group"`
	Units      int        `json:"units"`
	DonatedAt  time.Time  `json:"donated_at"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NextEligible returns the earliest time the donor may donate again.
func (d *Donation) NextEligible() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.DonatedAt.Add(DonationDeferral)
}
