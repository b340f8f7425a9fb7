package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SLARuleRepository persists SLA rules. List order is the evaluation order.
type SLARuleRepository interface {
	Create(ctx context.Context, rule *domain.SLARule) error
	GetByID(ctx context.Context, id string) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository builds repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) Create(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (name, response_mins, resolution_mins, condition_field, condition_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	var field, value *string
	if rule.Condition != nil {
		field, value = &rule.Condition.Field, &rule.Condition.Value
	}
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.ResponseMinutes,
		rule.ResolutionMinutes,
		field,
		value,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (r *slaRuleRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	const query = `
        SELECT id, name, response_mins, resolution_mins, condition_field, condition_value, created_at
        FROM sla_rules WHERE id=$1`
	rule, err := scanSLARule(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *slaRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	const query = `
        SELECT id, name, response_mins, resolution_mins, condition_field, condition_value, created_at
        FROM sla_rules ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		rule, err := scanSLARule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func scanSLARule(row pgx.Row) (domain.SLARule, error) {
	var (
		rule         domain.SLARule
		field, value *string
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.ResponseMinutes,
		&rule.ResolutionMinutes,
		&field,
		&value,
		&rule.CreatedAt,
	); err != nil {
		return domain.SLARule{}, err
	}
	if field != nil && *field != "" {
		cond := domain.RuleCondition{Field: *field}
		if value != nil {
			cond.Value = *value
		}
		rule.Condition = &cond
	}
	return rule, nil
}
