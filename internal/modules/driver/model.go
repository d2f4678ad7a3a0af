// README: Driver aggregate, status/verification lifecycle and validation.
package driver

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"courier/internal/types"
)

type Status string

const (
	StatusOffline              Status = "offline"
	StatusOnline               Status = "online"
	StatusBusy                 Status = "busy"
	StatusWaitingForAcceptance Status = "waiting_for_acceptance"
)

type Verification string

const (
	VerificationPending  Verification = "pending"
	VerificationVerified Verification = "verified"
	VerificationRejected Verification = "rejected"
)

type VehicleInfo struct {
	Type  string
	Plate string
	Brand string
	Model string
	Year  int
	Color string
}

// NewVehicleInfo validates and normalizes vehicle details. Plates are stored
// uppercased; a zero year means unknown.
func NewVehicleInfo(vehicleType, plate, brand, model string, year int, color string) (VehicleInfo, error) {
	vehicleType = strings.TrimSpace(vehicleType)
	plate = strings.TrimSpace(plate)
	if vehicleType == "" {
		return VehicleInfo{}, fmt.Errorf("%w: vehicle type cannot be empty", ErrValidation)
	}
	if plate == "" {
		return VehicleInfo{}, fmt.Errorf("%w: license plate cannot be empty", ErrValidation)
	}
	if year != 0 && (year < 1900 || year > time.Now().UTC().Year()+1) {
		return VehicleInfo{}, fmt.Errorf("%w: vehicle year must be between 1900 and %d", ErrValidation, time.Now().UTC().Year()+1)
	}
	return VehicleInfo{
		Type:  vehicleType,
		Plate: strings.ToUpper(plate),
		Brand: strings.TrimSpace(brand),
		Model: strings.TrimSpace(model),
		Year:  year,
		Color: strings.TrimSpace(color),
	}, nil
}

type Driver struct {
	ID           types.ID
	FullName     string
	Phone        string
	Email        string
	Status       Status
	Verification Verification
	Vehicle      *VehicleInfo

	LicenseNumber              string
	ProfileImageURL            string
	CitizenIDImageURL          string
	DriverLicenseImageURL      string
	DriverRegistrationImageURL string

	FCMToken        string
	VerifiedAt      *time.Time
	RejectionReason string

	Deleted   bool
	DeletedAt *time.Time

	// Version guards concurrent writers; every persisted mutation bumps it.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New registers a driver: offline, pending verification.
func New(id types.ID, fullName, phone, email, licenseNumber string) (*Driver, error) {
	name, err := validateFullName(fullName)
	if err != nil {
		return nil, err
	}
	normPhone, err := validatePhone(phone)
	if err != nil {
		return nil, err
	}
	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Driver{
		ID:            id,
		FullName:      name,
		Phone:         normPhone,
		Email:         normEmail,
		Status:        StatusOffline,
		Verification:  VerificationPending,
		LicenseNumber: strings.TrimSpace(licenseNumber),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (d *Driver) GoOnline() error {
	if d.Verification != VerificationVerified {
		return fmt.Errorf("%w: driver must be verified before going online", ErrValidation)
	}
	if d.Vehicle == nil {
		return fmt.Errorf("%w: driver must have vehicle information before going online", ErrValidation)
	}
	d.Status = StatusOnline
	d.touch()
	return nil
}

func (d *Driver) GoOffline() error {
	if d.Status == StatusBusy {
		return fmt.Errorf("%w: cannot go offline while busy with an order", ErrValidation)
	}
	d.Status = StatusOffline
	d.touch()
	return nil
}

func (d *Driver) MarkBusy() error {
	if d.Status != StatusOnline {
		return fmt.Errorf("%w: driver must be online to be marked as busy", ErrValidation)
	}
	d.Status = StatusBusy
	d.touch()
	return nil
}

func (d *Driver) MarkAvailable() error {
	if d.Status != StatusBusy && d.Status != StatusWaitingForAcceptance {
		return fmt.Errorf("%w: driver must be busy or awaiting acceptance to be marked as available", ErrValidation)
	}
	d.Status = StatusOnline
	d.touch()
	return nil
}

// MarkWaitingForAcceptance parks an online driver while an assignment waits
// for their answer.
func (d *Driver) MarkWaitingForAcceptance() error {
	if d.Status != StatusOnline {
		return fmt.Errorf("%w: driver must be online to receive an assignment", ErrValidation)
	}
	d.Status = StatusWaitingForAcceptance
	d.touch()
	return nil
}

// Verify is not idempotent on purpose: re-verifying an already verified
// driver is treated as an operator mistake.
func (d *Driver) Verify() error {
	if d.Verification == VerificationVerified {
		return fmt.Errorf("%w: driver is already verified", ErrValidation)
	}
	now := time.Now().UTC()
	d.Verification = VerificationVerified
	d.VerifiedAt = &now
	d.RejectionReason = ""
	d.touch()
	return nil
}

func (d *Driver) Reject(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: rejection reason cannot be empty", ErrValidation)
	}
	d.Verification = VerificationRejected
	d.RejectionReason = reason
	d.touch()
	return nil
}

func (d *Driver) UpdateVehicle(v VehicleInfo) {
	d.Vehicle = &v
	d.touch()
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	FullName                   *string
	Email                      *string
	Phone                      *string
	ProfileImageURL            *string
	CitizenIDImageURL          *string
	DriverLicenseImageURL      *string
	DriverRegistrationImageURL *string
}

func (d *Driver) UpdateProfile(u ProfileUpdate) error {
	if u.FullName != nil {
		name, err := validateFullName(*u.FullName)
		if err != nil {
			return err
		}
		d.FullName = name
	}
	if u.Email != nil {
		email, err := validateEmail(*u.Email)
		if err != nil {
			return err
		}
		d.Email = email
	}
	if u.Phone != nil {
		phone, err := validatePhone(*u.Phone)
		if err != nil {
			return err
		}
		d.Phone = phone
	}
	if u.ProfileImageURL != nil {
		d.ProfileImageURL = strings.TrimSpace(*u.ProfileImageURL)
	}
	if u.CitizenIDImageURL != nil {
		d.CitizenIDImageURL = strings.TrimSpace(*u.CitizenIDImageURL)
	}
	if u.DriverLicenseImageURL != nil {
		d.DriverLicenseImageURL = strings.TrimSpace(*u.DriverLicenseImageURL)
	}
	if u.DriverRegistrationImageURL != nil {
		d.DriverRegistrationImageURL = strings.TrimSpace(*u.DriverRegistrationImageURL)
	}
	d.touch()
	return nil
}

// SoftDelete flags the driver without removing the row. The service refuses
// deletion while a trip is still active.
// TODO: also refuse deletion while the wallet balance is non-zero.
func (d *Driver) SoftDelete() {
	now := time.Now().UTC()
	d.Deleted = true
	d.DeletedAt = &now
	d.touch()
}

func (d *Driver) touch() {
	d.UpdatedAt = time.Now().UTC()
}

func validateFullName(fullName string) (string, error) {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return "", fmt.Errorf("%w: full name cannot be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return "", fmt.Errorf("%w: full name must be between 2 and 100 characters", ErrValidation)
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", fmt.Errorf("%w: email cannot be empty", ErrValidation)
	}
	if !strings.Contains(e, "@") || !strings.Contains(e, ".") {
		return "", fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return e, nil
}

func validatePhone(phone string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if cleaned == "" {
		return "", fmt.Errorf("%w: phone number cannot be empty", ErrValidation)
	}
	digits := cleaned
	if strings.HasPrefix(cleaned, "+") {
		digits = cleaned[1:]
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", fmt.Errorf("%w: phone number must be between 10 and 15 digits", ErrValidation)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: phone number must contain only digits (and optionally start with +)", ErrValidation)
		}
	}
	return cleaned, nil
}
