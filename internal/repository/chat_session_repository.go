package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
)

// metadataTicketKey is where the linked ticket id lives in the metadata column.
const metadataTicketKey = "ticketId"

// ChatSessionFilter narrows session listing. A zero Limit lists every session.
type ChatSessionFilter struct {
	CustomerID *string
	TicketID   *string
	Limit      int
}

// ChatSessionRepository persists chat sessions.
type ChatSessionRepository interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	Update(ctx context.Context, session *domain.ChatSession) error
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	List(ctx context.Context, filter ChatSessionFilter) ([]domain.ChatSession, error)
	Delete(ctx context.Context, id string) error
}

type chatSessionRepository struct {
	pool *pgxpool.Pool
}

// NewChatSessionRepository builds repository.
func NewChatSessionRepository(pool *pgxpool.Pool) ChatSessionRepository {
	return &chatSessionRepository{pool: pool}
}

const sessionColumns = `id, customer_id, agent_id, status, started_at, ended_at,
               last_message, last_message_at, last_message_sender, metadata`

func (r *chatSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        INSERT INTO chat_sessions (customer_id, agent_id, status, metadata)
        VALUES (NULLIF($1,'')::uuid,$2,$3,$4)
        RETURNING id, started_at`
	return r.pool.QueryRow(ctx, query,
		session.CustomerID,
		session.AgentID,
		session.Status.StorageValue(),
		sessionMetadata(session),
	).Scan(&session.ID, &session.StartedAt)
}

// Update writes every mutable column. The ticket link is merged into the
// metadata document so unrelated keys survive. An empty CustomerID keeps the
// stored customer.
func (r *chatSessionRepository) Update(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        UPDATE chat_sessions SET agent_id=$1, status=$2, ended_at=$3, last_message=$4,
            last_message_at=$5, last_message_sender=$6,
            metadata = CASE WHEN $7::text IS NULL THEN metadata - 'ticketId'
                            ELSE metadata || jsonb_build_object('ticketId', $7::text) END,
            customer_id = COALESCE(NULLIF($8,'')::uuid, customer_id)
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		session.AgentID,
		session.Status.StorageValue(),
		session.EndedAt,
		session.LastMessage,
		session.LastMessageAt,
		string(session.LastMessageSender),
		session.TicketID,
		session.CustomerID,
		session.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chatSessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id=$1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions most recently active first.
func (r *chatSessionRepository) List(ctx context.Context, filter ChatSessionFilter) ([]domain.ChatSession, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("metadata->>'ticketId'=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE %s
        ORDER BY last_message_at DESC NULLS LAST, started_at DESC`,
		sessionColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}

func (r *chatSessionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func sessionMetadata(session *domain.ChatSession) map[string]any {
	meta := map[string]any{}
	if session.TicketID != nil {
		meta[metadataTicketKey] = *session.TicketID
	}
	return meta
}

// linkedTicket reads the ticket id out of the metadata document. Non-string
// or empty values are treated as no link.
func linkedTicket(meta map[string]any) *string {
	raw, ok := meta[metadataTicketKey].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	return &raw
}

func scanSession(row pgx.Row) (domain.ChatSession, error) {
	var (
		session       domain.ChatSession
		status        string
		lastMessageAt *time.Time
		sender        string
		customerID    *string
		meta          map[string]any
	)
	if err := row.Scan(
		&session.ID,
		&customerID,
		&session.AgentID,
		&status,
		&session.StartedAt,
		&session.EndedAt,
		&session.LastMessage,
		&lastMessageAt,
		&sender,
		&meta,
	); err != nil {
		return domain.ChatSession{}, err
	}
	if customerID != nil {
		session.CustomerID = *customerID
	}
	session.Status = evaluator.NormalizeSessionStatus(status)
	session.LastMessageAt = lastMessageAt
	if sender != "" {
		session.LastMessageSender = evaluator.NormalizeSender(sender)
	}
	session.TicketID = linkedTicket(meta)
	return session, nil
}
