package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadstack/lead-service/internal/domain"
)

// LeadActivityRepository stores the mutation trail for leads.
type LeadActivityRepository interface {
	Create(ctx context.Context, activity *domain.LeadActivity) error
	ListForOwner(ctx context.Context, ownerID, leadID string, limit int) ([]domain.LeadActivity, error)
}

type leadActivityRepository struct {
	pool *pgxpool.Pool
}

// NewLeadActivityRepository builds repository.
func NewLeadActivityRepository(pool *pgxpool.Pool) LeadActivityRepository {
	return &leadActivityRepository{pool: pool}
}

func (r *leadActivityRepository) Create(ctx context.Context, activity *domain.LeadActivity) error {
	const query = `
        INSERT INTO lead_activity (id, lead_id, owner_id, action, detail, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		activity.ID,
		activity.LeadID,
		activity.OwnerID,
		activity.Action,
		activity.Detail,
		activity.OccurredAt,
	)
	return err
}

func (r *leadActivityRepository) ListForOwner(ctx context.Context, ownerID, leadID string, limit int) ([]domain.LeadActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, lead_id, owner_id, action, detail, occurred_at
        FROM lead_activity WHERE owner_id=$1 AND lead_id=$2
        ORDER BY occurred_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, ownerID, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LeadActivity
	for rows.Next() {
		var activity domain.LeadActivity
		if err := rows.Scan(
			&activity.ID,
			&activity.LeadID,
			&activity.OwnerID,
			&activity.Action,
			&activity.Detail,
			&activity.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
