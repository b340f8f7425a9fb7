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

// TicketFilter captures agent search parameters. A zero Limit lists every
// matching ticket.
type TicketFilter struct {
	CustomerID  *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates support case persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	LatestOpenForCustomer(ctx context.Context, customerID string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, case_number, title, description, status, priority, customer_id, assigned_to,
               created_at, updated_at, resolution_date`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO support_cases (case_number, title, description, status, priority, customer_id, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if ticket.CaseNumber == "" {
		ticket.CaseNumber = fmt.Sprintf("CASE-%d", time.Now().UnixMilli())
	}
	return r.pool.QueryRow(ctx, query,
		ticket.CaseNumber,
		ticket.Title,
		ticket.Description,
		ticket.Status.StorageValue(),
		ticket.Priority.StorageValue(),
		ticket.CustomerID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE support_cases SET title=$1, description=$2, status=$3, priority=$4, assigned_to=$5,
            resolution_date=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status.StorageValue(),
		ticket.Priority.StorageValue(),
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_cases WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// LatestOpenForCustomer returns the customer's newest ticket that is neither
// resolved nor closed.
func (r *ticketRepository) LatestOpenForCustomer(ctx context.Context, customerID string) (*domain.Ticket, error) {
	query, args := latestOpenQuery(customerID)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func latestOpenQuery(customerID string) (string, []any) {
	clause, args := statusClause([]domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}, 1)
	query := `SELECT ` + ticketColumns + ` FROM support_cases
        WHERE customer_id=$1 AND ` + clause + `
        ORDER BY created_at DESC LIMIT 1`
	return query, append([]any{customerID}, args...)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM support_cases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildTicketQuery(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clause, statusArgs := statusClause(filter.Statuses, len(args))
		args = append(args, statusArgs...)
		clauses = append(clauses, clause)
	}
	if len(filter.Priorities) > 0 {
		clause, priorityArgs := priorityClause(filter.Priorities, len(args))
		args = append(args, priorityArgs...)
		clauses = append(clauses, clause)
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM support_cases WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}
	return query, args
}

// statusClause matches every stored spelling of the requested statuses. Open
// also covers unknown spellings, so it is expressed as "none of the others".
func statusClause(statuses []domain.TicketStatus, argc int) (string, []any) {
	wanted := map[domain.TicketStatus]bool{}
	for _, s := range statuses {
		if s == domain.TicketStatusResolved {
			s = domain.TicketStatusClosed
		}
		wanted[s] = true
	}

	var include, exclude []string
	for _, s := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusClosed} {
		if wanted[s] {
			include = append(include, evaluator.StatusAliases(s)...)
		} else {
			exclude = append(exclude, evaluator.StatusAliases(s)...)
		}
	}
	if wanted[domain.TicketStatusOpen] {
		if len(exclude) == 0 {
			return "1=1", nil
		}
		return fmt.Sprintf("LOWER(TRIM(status)) <> ALL($%d)", argc+1), []any{exclude}
	}
	return fmt.Sprintf("LOWER(TRIM(status)) = ANY($%d)", argc+1), []any{include}
}

// priorityClause mirrors statusClause with Medium as the fallback value.
func priorityClause(priorities []domain.TicketPriority, argc int) (string, []any) {
	wanted := map[domain.TicketPriority]bool{}
	for _, p := range priorities {
		wanted[p] = true
	}
	var include, exclude []string
	for _, p := range []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityHigh} {
		if wanted[p] {
			include = append(include, evaluator.PriorityAliases(p)...)
		} else {
			exclude = append(exclude, evaluator.PriorityAliases(p)...)
		}
	}
	if wanted[domain.TicketPriorityMedium] {
		if len(exclude) == 0 {
			return "1=1", nil
		}
		return fmt.Sprintf("LOWER(TRIM(priority)) <> ALL($%d)", argc+1), []any{exclude}
	}
	return fmt.Sprintf("LOWER(TRIM(priority)) = ANY($%d)", argc+1), []any{include}
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		priority string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.CaseNumber,
		&ticket.Title,
		&ticket.Description,
		&status,
		&priority,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return domain.Ticket{}, err
	}
	ticket.Status = evaluator.NormalizeStatus(status)
	ticket.Priority = evaluator.NormalizePriority(priority)
	return ticket, nil
}
