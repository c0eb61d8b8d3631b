package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// RecipientDirectory resolves user ids into contact details.
type RecipientDirectory interface {
	GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed directory over the users table.
func NewUserRepository(pool *pgxpool.Pool) RecipientDirectory {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error) {
	const query = `
        SELECT id, name, email, status
        FROM users WHERE id=$1`

	var recipient domain.Recipient
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&recipient.ID,
		&recipient.Name,
		&recipient.Email,
		&recipient.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("user", userID)
	}
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}
