package repo

import (
	"context"
	"fmt"
	"time"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/internal/sqlinline"
)

// UsageRepositoryPG implements domain.CostCollector.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

// Record inserts one billable usage event.
func (r *UsageRepositoryPG) Record(ctx context.Context, ev domain.UsageEvent) error {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	method := ev.Method
	if method == "" {
		method = domain.RemovalNone
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		ev.RequestID,
		ev.BusinessID,
		ev.Stage,
		ev.Model,
		string(method),
		ev.CostUSD,
		occurred,
	)
	if err != nil {
		return fmt.Errorf("repo: record usage: %w", err)
	}
	return nil
}

// SpendSince sums the recorded cost for a business from since onwards.
func (r *UsageRepositoryPG) SpendSince(ctx context.Context, businessID string, since time.Time) (float64, error) {
	var total float64
	if err := r.sql.QueryRow(ctx, sqlinline.QSumUsageByBusiness, businessID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("repo: sum usage: %w", err)
	}
	return total, nil
}

var _ domain.CostCollector = (*UsageRepositoryPG)(nil)
