package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/filter"
)

const leadColumns = `id, owner_id, first_name, last_name, email, phone, company, city, state,
               source, status, score, lead_value, is_qualified, created_at, last_activity_at`

// LeadRepository encapsulates lead persistence. Every read and write is
// scoped to an owner; there is no unscoped lookup.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	GetForOwner(ctx context.Context, ownerID, id string) (*domain.Lead, error)
	DeleteForOwner(ctx context.Context, ownerID, id string) error
	EmailExistsForOwner(ctx context.Context, ownerID, email string) (bool, error)
	CountForOwner(ctx context.Context, ownerID string, conditions []filter.Condition) (int64, error)
	ListForOwner(ctx context.Context, ownerID string, conditions []filter.Condition, limit, offset int) ([]domain.Lead, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (owner_id, first_name, last_name, email, phone, company, city, state,
                           source, status, score, lead_value, is_qualified, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		lead.OwnerID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.City,
		lead.State,
		lead.Source,
		lead.Status,
		lead.Score,
		lead.LeadValue,
		lead.IsQualified,
		lead.LastActivityAt,
	).Scan(&lead.ID, &lead.CreatedAt)
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE leads SET first_name=$1, last_name=$2, email=$3, phone=$4, company=$5, city=$6, state=$7,
            source=$8, status=$9, score=$10, lead_value=$11, is_qualified=$12, last_activity_at=$13
        WHERE id=$14 AND owner_id=$15`
	cmd, err := r.pool.Exec(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.City,
		lead.State,
		lead.Source,
		lead.Status,
		lead.Score,
		lead.LeadValue,
		lead.IsQualified,
		lead.LastActivityAt,
		lead.ID,
		lead.OwnerID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) GetForOwner(ctx context.Context, ownerID, id string) (*domain.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id=$1 AND owner_id=$2`, leadColumns)
	var lead domain.Lead
	if err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(leadFields(&lead)...); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) DeleteForOwner(ctx context.Context, ownerID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) EmailExistsForOwner(ctx context.Context, ownerID, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE owner_id=$1 AND email=$2)`,
		ownerID, email,
	).Scan(&exists)
	return exists, err
}

func (r *leadRepository) CountForOwner(ctx context.Context, ownerID string, conditions []filter.Condition) (int64, error) {
	where, args := buildWhere(ownerID, conditions)
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+where, args...).Scan(&total)
	return total, err
}

func (r *leadRepository) ListForOwner(ctx context.Context, ownerID string, conditions []filter.Condition, limit, offset int) ([]domain.Lead, error) {
	where, args := buildWhere(ownerID, conditions)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		leadColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

// buildWhere renders compiled filter conditions plus the mandatory owner
// clause into SQL. The owner clause is always first and always present.
func buildWhere(ownerID string, conditions []filter.Condition) (string, []any) {
	args := []any{ownerID}
	clauses := []string{"owner_id=$1"}

	for _, cond := range conditions {
		switch cond.Kind {
		case filter.KindEquals:
			args = append(args, cond.Args[0])
			clauses = append(clauses, fmt.Sprintf("%s=$%d", cond.Column, len(args)))
		case filter.KindContains:
			args = append(args, "%"+fmt.Sprint(cond.Args[0])+"%")
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", cond.Column, len(args)))
		case filter.KindIn:
			placeholders := make([]string, len(cond.Args))
			for i, arg := range cond.Args {
				args = append(args, arg)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", cond.Column, strings.Join(placeholders, ",")))
		case filter.KindGreaterThan:
			args = append(args, cond.Args[0])
			clauses = append(clauses, fmt.Sprintf("%s > $%d", cond.Column, len(args)))
		case filter.KindLessThan:
			args = append(args, cond.Args[0])
			clauses = append(clauses, fmt.Sprintf("%s < $%d", cond.Column, len(args)))
		case filter.KindRangeClosed:
			args = append(args, cond.Args[0])
			lo := len(args)
			args = append(args, cond.Args[1])
			clauses = append(clauses, fmt.Sprintf("%s >= $%d AND %s <= $%d", cond.Column, lo, cond.Column, len(args)))
		case filter.KindRangeHalfOpen:
			args = append(args, cond.Args[0])
			lo := len(args)
			args = append(args, cond.Args[1])
			clauses = append(clauses, fmt.Sprintf("%s >= $%d AND %s < $%d", cond.Column, lo, cond.Column, len(args)))
		}
	}

	return strings.Join(clauses, " AND "), args
}

func leadFields(lead *domain.Lead) []any {
	return []any{
		&lead.ID,
		&lead.OwnerID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.City,
		&lead.State,
		&lead.Source,
		&lead.Status,
		&lead.Score,
		&lead.LeadValue,
		&lead.IsQualified,
		&lead.CreatedAt,
		&lead.LastActivityAt,
	}
}

func scanLeads(rows pgx.Rows) ([]domain.Lead, error) {
	var result []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		if err := rows.Scan(leadFields(&lead)...); err != nil {
			return nil, err
		}
		result = append(result, lead)
	}
	return result, rows.Err()
}
