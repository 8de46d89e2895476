package storage

import (
	"context"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

// CutRecordRepository is the append-only grooming history.
type CutRecordRepository struct {
	pool *db.Pool
}

func NewCutRecordRepository(pool *db.Pool) *CutRecordRepository {
	return &CutRecordRepository{pool: pool}
}

func (r *CutRecordRepository) Record(ctx context.Context, rec model.CutRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cut_records
			(id, appointment_id, groomer_id, pet_name, service_type, scheduled_date, start_minute, notes, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.AppointmentID, rec.GroomerID, rec.PetName, string(rec.Service),
		rec.Date, rec.StartMinute, rec.Notes, rec.CreatedAt)
	return err
}

func (r *CutRecordRepository) ListForPet(ctx context.Context, petName string) ([]model.CutRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, appointment_id::text, COALESCE(groomer_id::text, ''), pet_name,
			service_type, scheduled_date, start_minute, notes, created_at
		FROM cut_records
		WHERE pet_name = $1
		ORDER BY scheduled_date DESC, start_minute DESC
	`, petName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.CutRecord
	for rows.Next() {
		var rec model.CutRecord
		var service string
		if err := rows.Scan(
			&rec.ID,
			&rec.AppointmentID,
			&rec.GroomerID,
			&rec.PetName,
			&service,
			&rec.Date,
			&rec.StartMinute,
			&rec.Notes,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Service = model.ServiceType(service)
		recs = append(recs, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return recs, nil
}
