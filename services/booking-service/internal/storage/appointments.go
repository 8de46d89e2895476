package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/availability"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
)

const appointmentColumns = `
	id::text, customer_id::text, pet_id::text, service_type, scheduled_date,
	start_minute, end_minute, address, lat, lng, notes, status,
	COALESCE(groomer_id::text, ''), created_at, updated_at`

// AppointmentRepository persists appointments. Mutations that must respect
// the no-overlap invariant run inside a transaction holding a per-date
// advisory lock, so the availability check and the write act as one atomic
// unit; the exclusion constraint on APPROVED rows is the backstop.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDate(ctx, tx, appt.Date); err != nil {
		return err
	}
	approved, err := listApprovedForDateTx(ctx, tx, appt.Date)
	if err != nil {
		return err
	}
	if err := availability.Check(appt.StartMinute, appt.Service, approved, ""); err != nil {
		return fmt.Errorf("%w: %s", scheduling.ErrSchedulingConflict, err.Error())
	}

	var lat, lng *float64
	if appt.Location != nil {
		lat, lng = &appt.Location.Lat, &appt.Location.Lng
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, customer_id, pet_id, service_type, scheduled_date, start_minute, end_minute,
			 address, lat, lng, notes, status, groomer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, '')::uuid, $14, $15)
	`, appt.ID, appt.CustomerID, appt.PetID, string(appt.Service), appt.Date,
		appt.StartMinute, appt.EndMinute(), appt.Address, lat, lng, appt.Notes,
		string(appt.Status), appt.GroomerID, appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		if IsExclusionViolation(err) {
			return fmt.Errorf("%w: slot already taken", scheduling.ErrSchedulingConflict)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("booking %s: %w", id, scheduling.ErrNotFound)
	}
	return appt, err
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, scheduling.ErrNotFound)
	}
	return nil
}

// Approve re-validates the slot against the other approved appointments of
// the date before flipping the status, all under the per-date advisory lock.
func (r *AppointmentRepository) Approve(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, scheduling.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := lockDate(ctx, tx, appt.Date); err != nil {
		return err
	}
	approved, err := listApprovedForDateTx(ctx, tx, appt.Date)
	if err != nil {
		return err
	}
	if err := availability.Check(appt.StartMinute, appt.Service, approved, appt.ID); err != nil {
		return fmt.Errorf("%w: %s", scheduling.ErrSchedulingConflict, err.Error())
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(model.StatusApproved))
	if err != nil {
		if IsExclusionViolation(err) {
			return fmt.Errorf("%w: slot already taken", scheduling.ErrSchedulingConflict)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDate(ctx, tx, appt.Date); err != nil {
		return err
	}
	approved, err := listApprovedForDateTx(ctx, tx, appt.Date)
	if err != nil {
		return err
	}
	if err := availability.Check(appt.StartMinute, appt.Service, approved, appt.ID); err != nil {
		return fmt.Errorf("%w: %s", scheduling.ErrSchedulingConflict, err.Error())
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET service_type = $2,
			scheduled_date = $3,
			start_minute = $4,
			end_minute = $5,
			status = $6,
			updated_at = $7
		WHERE id = $1
	`, appt.ID, string(appt.Service), appt.Date, appt.StartMinute, appt.EndMinute(),
		string(appt.Status), appt.UpdatedAt)
	if err != nil {
		if IsExclusionViolation(err) {
			return fmt.Errorf("%w: slot already taken", scheduling.ErrSchedulingConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", appt.ID, scheduling.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) ListApprovedForDate(ctx context.Context, date time.Time, groomerID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE scheduled_date = $1
			AND status = 'APPROVED'
			AND ($2 = '' OR groomer_id = NULLIF($2, '')::uuid)
		ORDER BY start_minute, id
	`, date, groomerID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *AppointmentRepository) ListForCustomer(ctx context.Context, customerID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_id = $1
		ORDER BY scheduled_date DESC, start_minute DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *AppointmentRepository) ListForDate(ctx context.Context, date time.Time, groomerID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE scheduled_date = $1
			AND ($2 = '' OR groomer_id = NULLIF($2, '')::uuid)
		ORDER BY start_minute, id
	`, date, groomerID)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *AppointmentRepository) LatestForPet(ctx context.Context, petID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE pet_id = $1
		ORDER BY scheduled_date DESC, start_minute DESC
		LIMIT 1
	`, petID)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("pet %s: %w", petID, scheduling.ErrNotFound)
	}
	return appt, err
}

// lockDate serializes slot mutations per calendar date for the duration of
// the enclosing transaction.
func lockDate(ctx context.Context, tx pgx.Tx, date time.Time) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('bookings:' || $1::text))`,
		model.FormatDate(date))
	return err
}

func listApprovedForDateTx(ctx context.Context, tx pgx.Tx, date time.Time) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE scheduled_date = $1 AND status = 'APPROVED'
		ORDER BY start_minute, id
	`, date)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var service, status string
	var endMinute int
	var lat, lng *float64
	err := row.Scan(
		&appt.ID,
		&appt.CustomerID,
		&appt.PetID,
		&service,
		&appt.Date,
		&appt.StartMinute,
		&endMinute,
		&appt.Address,
		&lat,
		&lng,
		&appt.Notes,
		&status,
		&appt.GroomerID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Service = model.ServiceType(service)
	appt.Status = model.Status(status)
	if lat != nil && lng != nil {
		appt.Location = &model.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return appt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// IsExclusionViolation reports a Postgres exclusion-constraint violation,
// raised when two APPROVED appointments would overlap.
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
