package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Profile holds the public-facing information of a provider account.
// Details carries the role-specific attributes as JSON.
type Profile struct {
	UserID      string          `json:"user_id"`
	Role        Role            `json:"role"`
	DisplayName string          `json:"display_name"`
	Phone       string          `json:"phone,omitempty"`
	Address     string          `json:"address,omitempty"`
	City        string          `json:"city,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DoctorDetails struct {
	Specialization  string `json:"specialization" validate:"required"`
	LicenseNumber   string `json:"license_number" validate:"required"`
	Hospital        string `json:"hospital,omitempty"`
	ExperienceYears int    `json:"experience_years" validate:"gte=0,lte=70"`
	ConsultationFee int    `json:"consultation_fee" validate:"gte=0"`
}

type PharmacyDetails struct {
	LicenseNumber string `json:"license_number" validate:"required"`
	OpeningHours  string `json:"opening_hours,omitempty"`
	HomeDelivery  bool   `json:"home_delivery"`
}

type BloodBankDetails struct {
	LicenseNumber string             `json:"license_number" validate:"required"`
	Inventory     map[BloodGroup]int `json:"inventory,omitempty" validate:"dive,gte=0"`
}

type HospitalDetails struct {
	RegistrationNumber string   `json:"registration_number" validate:"required"`
	Beds               int      `json:"beds" validate:"gte=0"`
	EmergencyAvailable bool     `json:"emergency_available"`
	Departments        []string `json:"departments,omitempty"`
}

type HealthAuthorityDetails struct {
	Jurisdiction string `json:"jurisdiction" validate:"required"`
	Designation  string `json:"designation,omitempty"`
}

type AmbulanceDetails struct {
	VehicleNumber string `json:"vehicle_number" validate:"required"`
	DriverName    string `json:"driver_name,omitempty"`
	Available     bool   `json:"available"`
}

// NewDetails returns an empty detail value for the role, or nil when the role
// does not own a profile.
func NewDetails(r Role) any {
	switch r {
	case RoleDoctor:
		return &DoctorDetails{}
	case RolePharmacy:
		return &PharmacyDetails{}
	case RoleBloodBank:
		return &BloodBankDetails{}
	case RoleHospital:
		return &HospitalDetails{}
	case RoleHealthAuthorization:
		return &HealthAuthorityDetails{}
	case RoleAmbulance:
		return &AmbulanceDetails{}
	default:
		return nil
	}
}

// DecodeDetails strictly decodes raw into the detail type matching the role.
func DecodeDetails(r Role, raw json.RawMessage) (any, error) {
	target := NewDetails(r)
	if target == nil {
		return nil, NewError(ErrCodeInvalid, fmt.Sprintf("role %s has no profile", r))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return target, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, WrapError(ErrCodeInvalid, "invalid profile details", err)
	}
	return target, nil
}
