package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
)

// Directory backs the pet and groomer lookups of the scheduler.
type Directory struct {
	pool *db.Pool
}

func NewDirectory(pool *db.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) Get(ctx context.Context, id string) (model.Pet, error) {
	var pet model.Pet
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, breed FROM pets WHERE id = $1
	`, id).Scan(&pet.ID, &pet.OwnerID, &pet.Name, &pet.Breed)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Pet{}, fmt.Errorf("pet %s: %w", id, scheduling.ErrNotFound)
	}
	if err != nil {
		return model.Pet{}, err
	}
	return pet, nil
}

// List returns groomers in stable id order, so the default assignment policy
// stays deterministic.
func (d *Directory) List(ctx context.Context) ([]model.Groomer, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, name FROM users WHERE role = 'GROOMER' ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groomers []model.Groomer
	for rows.Next() {
		var g model.Groomer
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groomers = append(groomers, g)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return groomers, nil
}

// Contact returns the email and phone for a user id (used by handlers to
// echo recipient info; the notification service does its own lookups).
func (d *Directory) Contact(ctx context.Context, id string) (email, phone string, err error) {
	err = d.pool.QueryRow(ctx, `
		SELECT email, phone FROM users WHERE id = $1
	`, id).Scan(&email, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("user %s: %w", id, scheduling.ErrNotFound)
	}
	return email, phone, err
}
