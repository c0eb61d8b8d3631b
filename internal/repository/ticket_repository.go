package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-hub/internal/domain"
)

const uniqueViolation = "23505"

// TicketFilter captures list parameters.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssigneeID *string
	Keyword    *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Activities are stored
// alongside their ticket and loaded by GetByID.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// CreateIfAbsent inserts the ticket unless another one already holds its
	// source event id, in which case the existing ticket is returned with created=false.
	CreateIfAbsent(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetBySourceEventID(ctx context.Context, key string) (*domain.Ticket, error)
	// Apply persists an operation outcome if the stored version still equals expectedVersion.
	Apply(ctx context.Context, outcome domain.Outcome, expectedVersion int) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	ListOpen(ctx context.Context, limit int) ([]domain.Ticket, error)
	Stats(ctx context.Context) (domain.TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, source, source_event_id, status, priority, host_id, reporter_id,
               assignee_id, organization_id, resolution_summary, version, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	_, err := r.pool.Exec(ctx, insertTicketQuery, insertTicketArgs(ticket)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: source event %v already ingested", domain.ErrConflict, deref(ticket.SourceEventID))
	}
	return err
}

const insertTicketQuery = `
        INSERT INTO tickets (id, title, description, source, source_event_id, status, priority, host_id, reporter_id,
            assignee_id, organization_id, resolution_summary, version, created_at, updated_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

func insertTicketArgs(ticket *domain.Ticket) []any {
	return []any{
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Source,
		ticket.SourceEventID,
		ticket.Status,
		ticket.Priority,
		ticket.HostID,
		ticket.ReporterID,
		ticket.AssigneeID,
		ticket.OrganizationID,
		ticket.ResolutionSummary,
		ticket.Version,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
	}
}

func (r *ticketRepository) CreateIfAbsent(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error) {
	if ticket.SourceEventID == nil {
		if err := r.Create(ctx, ticket); err != nil {
			return nil, false, err
		}
		return ticket, true, nil
	}

	cmd, err := r.pool.Exec(ctx, insertTicketQuery+` ON CONFLICT (source_event_id) DO NOTHING`, insertTicketArgs(ticket)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
			return nil, false, err
		}
	} else if cmd.RowsAffected() == 1 {
		return ticket, true, nil
	}

	existing, err := r.GetBySourceEventID(ctx, *ticket.SourceEventID)
	if err != nil {
		return nil, false, fmt.Errorf("refetch duplicate %s: %w", *ticket.SourceEventID, err)
	}
	return existing, false, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("ticket", id)
	}
	if err != nil {
		return nil, err
	}
	activities, err := listActivities(ctx, r.pool, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Activities = activities
	return ticket, nil
}

func (r *ticketRepository) GetBySourceEventID(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE source_event_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("ticket", key)
	}
	return ticket, err
}

func (r *ticketRepository) Apply(ctx context.Context, outcome domain.Outcome, expectedVersion int) (*domain.Ticket, error) {
	next := outcome.Ticket
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assignee_id=$5,
            resolution_summary=$6, resolved_at=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := tx.Exec(ctx, query,
		next.Title,
		next.Description,
		next.Status,
		next.Priority,
		next.AssigneeID,
		next.ResolutionSummary,
		next.ResolvedAt,
		next.UpdatedAt,
		next.ID,
		expectedVersion,
	)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, next.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.NewNotFound("ticket", next.ID)
		}
		return nil, fmt.Errorf("%w: ticket %s changed since version %d", domain.ErrConflict, next.ID, expectedVersion)
	}

	if err := insertActivities(ctx, tx, outcome.Activities); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	next.Version = expectedVersion + 1
	return &next, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.Keyword != nil && strings.TrimSpace(*filter.Keyword) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Keyword)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	return tickets, total, err
}

func (r *ticketRepository) ListOpen(ctx context.Context, limit int) ([]domain.Ticket, error) {
	limit, _ = pageBounds(limit, 0)
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE status NOT IN ('CLOSED','COMPLETED')
        ORDER BY CASE priority WHEN 'CRITICAL' THEN 1 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 3 ELSE 4 END, created_at DESC
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context) (domain.TicketStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='NEW'),
               COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
               COUNT(*) FILTER (WHERE status='PENDING'),
               COUNT(*) FILTER (WHERE status='RESOLVED'),
               COUNT(*) FILTER (WHERE status='COMPLETED'),
               COUNT(*) FILTER (WHERE status='CLOSED'),
               COUNT(*) FILTER (WHERE priority='CRITICAL' AND status NOT IN ('CLOSED','COMPLETED')),
               COUNT(*) FILTER (WHERE priority='HIGH' AND status NOT IN ('CLOSED','COMPLETED'))
        FROM tickets`
	var stats domain.TicketStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.New,
		&stats.InProgress,
		&stats.Pending,
		&stats.Resolved,
		&stats.Completed,
		&stats.Closed,
		&stats.Critical,
		&stats.High,
	)
	return stats, err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Source,
		&ticket.SourceEventID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.HostID,
		&ticket.ReporterID,
		&ticket.AssigneeID,
		&ticket.OrganizationID,
		&ticket.ResolutionSummary,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
