package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
)

// ChatMessageRepository appends and reads session transcripts.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *domain.ChatMessage) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository builds repository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

// Create inserts a message whose id and timestamp were assigned by the caller.
func (r *chatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (id, session_id, sender_type, content, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		string(message.SenderType),
		message.Content,
		message.CreatedAt,
	)
	return err
}

// ListBySession returns the transcript oldest first.
func (r *chatMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, session_id, sender_type, content, created_at
        FROM chat_messages WHERE session_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var (
			message domain.ChatMessage
			sender  string
		)
		if err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&sender,
			&message.Content,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		message.SenderType = evaluator.NormalizeSender(sender)
		result = append(result, message)
	}
	return result, rows.Err()
}
