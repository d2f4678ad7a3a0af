// README: Driver model tests (validation + lifecycle guards).
package driver

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDriverNormalizes(t *testing.T) {
	d, err := New("d1", "  Nguyen Van A  ", "+84 (90) 123-4567", "  A@Example.COM ", " B2-12345 ")
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if d.FullName != "Nguyen Van A" {
		t.Errorf("full name not trimmed: %q", d.FullName)
	}
	if d.Phone != "+84901234567" {
		t.Errorf("phone not normalized: %q", d.Phone)
	}
	if d.Email != "a@example.com" {
		t.Errorf("email not lowercased: %q", d.Email)
	}
	if d.LicenseNumber != "B2-12345" {
		t.Errorf("license number not trimmed: %q", d.LicenseNumber)
	}
	if d.Status != StatusOffline {
		t.Errorf("expected new driver offline, got %s", d.Status)
	}
	if d.Verification != VerificationPending {
		t.Errorf("expected new driver pending, got %s", d.Verification)
	}
}

func TestNewDriverValidation(t *testing.T) {
	cases := []struct {
		name                          string
		fullName, phone, email, lic   string
	}{
		{"empty name", "", "+84901234567", "a@example.com", "L1"},
		{"short name", "A", "+84901234567", "a@example.com", "L1"},
		{"long name", strings.Repeat("x", 101), "+84901234567", "a@example.com", "L1"},
		{"empty phone", "Nguyen Van A", "", "a@example.com", "L1"},
		{"short phone", "Nguyen Van A", "12345", "a@example.com", "L1"},
		{"long phone", "Nguyen Van A", "+1234567890123456", "a@example.com", "L1"},
		{"letters in phone", "Nguyen Van A", "+84abc1234567", "a@example.com", "L1"},
		{"empty email", "Nguyen Van A", "+84901234567", "", "L1"},
		{"bad email", "Nguyen Van A", "+84901234567", "not-an-email", "L1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("d1", tc.fullName, tc.phone, tc.email, tc.lic)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestFullNameLengthCountsRunes(t *testing.T) {
	// 100 multi-byte runes is within the limit even though it exceeds 100 bytes
	name := strings.Repeat("ツ", 100)
	d, err := New("d1", name, "+84901234567", "a@example.com", "L1")
	if err != nil {
		t.Fatalf("100-rune name: %v", err)
	}
	if d.FullName != name {
		t.Fatalf("name mangled: %q", d.FullName)
	}

	if _, err := New("d1", strings.Repeat("ツ", 101), "+84901234567", "a@example.com", "L1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("101-rune name: expected ErrValidation, got %v", err)
	}
	if _, err := New("d1", "ツ", "+84901234567", "a@example.com", "L1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("single-rune name: expected ErrValidation, got %v", err)
	}
}

func TestVehicleInfoValidation(t *testing.T) {
	v, err := NewVehicleInfo(" motorbike ", " 59-ab 123.45 ", "Honda", "Wave", 2020, "red")
	if err != nil {
		t.Fatalf("new vehicle: %v", err)
	}
	if v.Plate != "59-AB 123.45" {
		t.Errorf("plate not uppercased: %q", v.Plate)
	}
	if v.Type != "motorbike" {
		t.Errorf("type not trimmed: %q", v.Type)
	}

	if _, err := NewVehicleInfo("", "ABC", "", "", 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty type: expected ErrValidation, got %v", err)
	}
	if _, err := NewVehicleInfo("car", "", "", "", 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty plate: expected ErrValidation, got %v", err)
	}
	if _, err := NewVehicleInfo("car", "ABC", "", "", 1899, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("year 1899: expected ErrValidation, got %v", err)
	}
	if _, err := NewVehicleInfo("car", "ABC", "", "", time.Now().UTC().Year()+2, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("far-future year: expected ErrValidation, got %v", err)
	}
	// next model year is allowed
	if _, err := NewVehicleInfo("car", "ABC", "", "", time.Now().UTC().Year()+1, ""); err != nil {
		t.Errorf("next-year model: %v", err)
	}
}

func TestGoOnlineRequiresVerificationAndVehicle(t *testing.T) {
	d := mustNewDriver(t)

	if err := d.GoOnline(); !errors.Is(err, ErrValidation) {
		t.Fatalf("unverified driver online: expected ErrValidation, got %v", err)
	}

	if err := d.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := d.GoOnline(); !errors.Is(err, ErrValidation) {
		t.Fatalf("no vehicle online: expected ErrValidation, got %v", err)
	}

	v, _ := NewVehicleInfo("motorbike", "59-AB 123.45", "Honda", "Wave", 2020, "red")
	d.UpdateVehicle(v)
	if err := d.GoOnline(); err != nil {
		t.Fatalf("go online: %v", err)
	}
	if d.Status != StatusOnline {
		t.Fatalf("expected online, got %s", d.Status)
	}
}

func TestStatusGuards(t *testing.T) {
	d := verifiedDriver(t)

	// busy drivers cannot go offline
	if err := d.GoOnline(); err != nil {
		t.Fatalf("go online: %v", err)
	}
	if err := d.MarkBusy(); err != nil {
		t.Fatalf("mark busy: %v", err)
	}
	if err := d.GoOffline(); !errors.Is(err, ErrValidation) {
		t.Fatalf("offline while busy: expected ErrValidation, got %v", err)
	}

	// busy → available → offline is fine
	if err := d.MarkAvailable(); err != nil {
		t.Fatalf("mark available: %v", err)
	}
	if d.Status != StatusOnline {
		t.Fatalf("expected online after available, got %s", d.Status)
	}
	if err := d.GoOffline(); err != nil {
		t.Fatalf("go offline: %v", err)
	}

	// offline drivers cannot be marked busy or available
	if err := d.MarkBusy(); !errors.Is(err, ErrValidation) {
		t.Fatalf("busy while offline: expected ErrValidation, got %v", err)
	}
	if err := d.MarkAvailable(); !errors.Is(err, ErrValidation) {
		t.Fatalf("available while offline: expected ErrValidation, got %v", err)
	}
}

func TestVerifyAndReject(t *testing.T) {
	d := mustNewDriver(t)

	if err := d.Reject(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty reason: expected ErrValidation, got %v", err)
	}
	if err := d.Reject("blurry license photo"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if d.Verification != VerificationRejected || d.RejectionReason != "blurry license photo" {
		t.Fatalf("rejection not recorded: %s %q", d.Verification, d.RejectionReason)
	}

	// verifying a rejected driver clears the reason
	if err := d.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if d.Verification != VerificationVerified {
		t.Fatalf("expected verified, got %s", d.Verification)
	}
	if d.VerifiedAt == nil {
		t.Fatal("expected verified_at to be set")
	}
	if d.RejectionReason != "" {
		t.Fatalf("expected rejection reason cleared, got %q", d.RejectionReason)
	}

	// double verify is refused
	if err := d.Verify(); !errors.Is(err, ErrValidation) {
		t.Fatalf("double verify: expected ErrValidation, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	d := mustNewDriver(t)
	origPhone := d.Phone

	newName := "  Tran Thi B "
	newImage := " https://cdn.example.com/p.jpg "
	if err := d.UpdateProfile(ProfileUpdate{FullName: &newName, ProfileImageURL: &newImage}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if d.FullName != "Tran Thi B" {
		t.Errorf("name not updated: %q", d.FullName)
	}
	if d.ProfileImageURL != "https://cdn.example.com/p.jpg" {
		t.Errorf("image not updated: %q", d.ProfileImageURL)
	}
	if d.Phone != origPhone {
		t.Errorf("phone changed by unrelated update: %q", d.Phone)
	}

	bad := "x"
	if err := d.UpdateProfile(ProfileUpdate{FullName: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad name: expected ErrValidation, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	d := mustNewDriver(t)
	d.SoftDelete()
	if !d.Deleted || d.DeletedAt == nil {
		t.Fatal("expected deleted flag and timestamp")
	}
}

func mustNewDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New("d1", "Nguyen Van A", "+84901234567", "a@example.com", "B2-12345")
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	return d
}

func verifiedDriver(t *testing.T) *Driver {
	t.Helper()
	d := mustNewDriver(t)
	if err := d.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	v, err := NewVehicleInfo("motorbike", "59-AB 123.45", "Honda", "Wave", 2020, "red")
	if err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	d.UpdateVehicle(v)
	return d
}
