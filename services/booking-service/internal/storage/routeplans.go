package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
)

// RoutePlanRepository stores at most one visiting-order override per date.
// The order is serialized as a comma-joined id list, which round-trips
// losslessly for uuid ids.
type RoutePlanRepository struct {
	pool *db.Pool
}

func NewRoutePlanRepository(pool *db.Pool) *RoutePlanRepository {
	return &RoutePlanRepository{pool: pool}
}

func (r *RoutePlanRepository) Save(ctx context.Context, plan model.DayRoutePlan) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO route_plans (plan_date, order_csv, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (plan_date) DO UPDATE
		SET order_csv = EXCLUDED.order_csv,
			updated_at = EXCLUDED.updated_at
	`, plan.Date, strings.Join(plan.OrderedID, ","), plan.UpdatedAt)
	return err
}

func (r *RoutePlanRepository) Get(ctx context.Context, date time.Time) (model.DayRoutePlan, error) {
	var plan model.DayRoutePlan
	var csv string
	err := r.pool.QueryRow(ctx, `
		SELECT plan_date, order_csv, updated_at FROM route_plans WHERE plan_date = $1
	`, date).Scan(&plan.Date, &csv, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DayRoutePlan{}, fmt.Errorf("route plan for %s: %w", model.FormatDate(date), scheduling.ErrNotFound)
	}
	if err != nil {
		return model.DayRoutePlan{}, err
	}
	if csv != "" {
		plan.OrderedID = strings.Split(csv, ",")
	}
	return plan, nil
}
