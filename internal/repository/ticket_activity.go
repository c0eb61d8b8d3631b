package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertActivities(ctx context.Context, q querier, activities []domain.Activity) error {
	const query = `
        INSERT INTO ticket_activities (id, ticket_id, type, content, actor_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	for _, activity := range activities {
		if _, err := q.Exec(ctx, query,
			activity.ID,
			activity.TicketID,
			activity.Type,
			activity.Content,
			activity.ActorID,
			activity.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func listActivities(ctx context.Context, q querier, ticketID string) ([]domain.Activity, error) {
	const query = `
        SELECT id, ticket_id, type, content, actor_id, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.Type,
			&activity.Content,
			&activity.ActorID,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
