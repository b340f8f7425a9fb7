package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AgentRepository handles persistence for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	SoftDelete(ctx context.Context, id string) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, password_hash, role, last_seen, is_deleted, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		string(agent.Role),
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1 AND NOT is_deleted`
	agent, err := scanAgent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE LOWER(email)=LOWER($1) AND NOT is_deleted`
	agent, err := scanAgent(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// List returns agents that have not been removed.
func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE NOT is_deleted ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE agents SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND NOT is_deleted`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TouchLastSeen records a presence heartbeat.
func (r *agentRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE agents SET last_seen=$1 WHERE id=$2`, at, id)
	return err
}

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var (
		agent domain.Agent
		role  string
	)
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&role,
		&agent.LastSeen,
		&agent.Deleted,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return domain.Agent{}, err
	}
	agent.Role = domain.ParseAgentRole(role)
	return agent, nil
}
