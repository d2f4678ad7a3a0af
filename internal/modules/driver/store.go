// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"courier/internal/infra"
	"courier/internal/types"
)

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const driverColumns = `
	id, full_name, phone, email, status, verification, version,
	license_number, profile_image_url, citizen_id_image_url,
	driver_license_image_url, driver_registration_image_url,
	vehicle_type, vehicle_plate, vehicle_brand, vehicle_model, vehicle_year, vehicle_color,
	fcm_token, verified_at, rejection_reason,
	deleted, deleted_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (
			id, full_name, phone, email, status, verification, version,
			license_number, profile_image_url, citizen_id_image_url,
			driver_license_image_url, driver_registration_image_url,
			fcm_token, rejection_reason, deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12,
			$13, $14, $15, $16, $17
		)`,
		string(d.ID),
		d.FullName,
		d.Phone,
		d.Email,
		string(d.Status),
		string(d.Verification),
		d.Version,
		d.LicenseNumber,
		d.ProfileImageURL,
		d.CitizenIDImageURL,
		d.DriverLicenseImageURL,
		d.DriverRegistrationImageURL,
		d.FCMToken,
		d.RejectionReason,
		d.Deleted,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if infra.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT`+driverColumns+`
		FROM drivers
		WHERE id = $1 AND deleted = FALSE`, string(id),
	)
	return scanDriver(row)
}

func (s *Store) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM drivers
			WHERE (email = $1 OR phone = $2) AND deleted = FALSE
		)`, email, phone,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Update persists the full driver row guarded by the version the caller
// loaded. Reports false when another writer got there first.
func (s *Store) Update(ctx context.Context, d *Driver) (bool, error) {
	var (
		vehicleType, vehiclePlate, vehicleBrand, vehicleModel, vehicleColor *string
		vehicleYear                                                        *int
	)
	if d.Vehicle != nil {
		vehicleType = &d.Vehicle.Type
		vehiclePlate = &d.Vehicle.Plate
		vehicleBrand = &d.Vehicle.Brand
		vehicleModel = &d.Vehicle.Model
		vehicleColor = &d.Vehicle.Color
		if d.Vehicle.Year != 0 {
			vehicleYear = &d.Vehicle.Year
		}
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET full_name = $1,
		    phone = $2,
		    email = $3,
		    status = $4,
		    verification = $5,
		    version = version + 1,
		    license_number = $6,
		    profile_image_url = $7,
		    citizen_id_image_url = $8,
		    driver_license_image_url = $9,
		    driver_registration_image_url = $10,
		    vehicle_type = $11,
		    vehicle_plate = $12,
		    vehicle_brand = $13,
		    vehicle_model = $14,
		    vehicle_year = $15,
		    vehicle_color = $16,
		    fcm_token = $17,
		    verified_at = $18,
		    rejection_reason = $19,
		    deleted = $20,
		    deleted_at = $21,
		    updated_at = $22
		WHERE id = $23 AND version = $24`,
		d.FullName,
		d.Phone,
		d.Email,
		string(d.Status),
		string(d.Verification),
		d.LicenseNumber,
		d.ProfileImageURL,
		d.CitizenIDImageURL,
		d.DriverLicenseImageURL,
		d.DriverRegistrationImageURL,
		vehicleType,
		vehiclePlate,
		vehicleBrand,
		vehicleModel,
		vehicleYear,
		vehicleColor,
		d.FCMToken,
		d.VerifiedAt,
		d.RejectionReason,
		d.Deleted,
		d.DeletedAt,
		d.UpdatedAt,
		string(d.ID),
		d.Version,
	)
	if infra.IsUniqueViolation(err) {
		return false, ErrDuplicate
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus flips only the status column, guarded by the current status.
// Used by trip orchestration inside its transaction.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET status = $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted = FALSE`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var (
		vehicleType, vehiclePlate, vehicleBrand, vehicleModel, vehicleColor sql.NullString
		vehicleYear                                                        sql.NullInt64
		verifiedAt, deletedAt                                              sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.FullName, &d.Phone, &d.Email, &d.Status, &d.Verification, &d.Version,
		&d.LicenseNumber, &d.ProfileImageURL, &d.CitizenIDImageURL,
		&d.DriverLicenseImageURL, &d.DriverRegistrationImageURL,
		&vehicleType, &vehiclePlate, &vehicleBrand, &vehicleModel, &vehicleYear, &vehicleColor,
		&d.FCMToken, &verifiedAt, &d.RejectionReason,
		&d.Deleted, &deletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if vehiclePlate.Valid {
		d.Vehicle = &VehicleInfo{
			Type:  vehicleType.String,
			Plate: vehiclePlate.String,
			Brand: vehicleBrand.String,
			Model: vehicleModel.String,
			Year:  int(vehicleYear.Int64),
			Color: vehicleColor.String,
		}
	}
	d.VerifiedAt = toTimePtr(verifiedAt)
	d.DeletedAt = toTimePtr(deletedAt)
	return &d, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
