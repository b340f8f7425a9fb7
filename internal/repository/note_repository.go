package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NoteRepository stores agent notes on tickets.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        INSERT INTO case_notes (case_id, text, internal, author_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, at`
	return r.pool.QueryRow(ctx, query,
		note.TicketID,
		note.Text,
		note.Internal,
		note.AuthorID,
	).Scan(&note.ID, &note.At)
}

// ListByTicket returns notes newest first.
func (r *noteRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Note, error) {
	const query = `
        SELECT id, case_id, text, internal, author_id, at
        FROM case_notes WHERE case_id=$1 ORDER BY at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.Text,
			&note.Internal,
			&note.AuthorID,
			&note.At,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
