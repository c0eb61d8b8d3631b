package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HostResolver maps monitoring-tool identifiers onto managed hosts.
type HostResolver interface {
	FindHostIDByExternalID(ctx context.Context, adapterType, externalID string) (string, bool, error)
}

type hostRepository struct {
	pool *pgxpool.Pool
}

// NewHostRepository reads the host_adapters mapping table.
func NewHostRepository(pool *pgxpool.Pool) HostResolver {
	return &hostRepository{pool: pool}
}

func (r *hostRepository) FindHostIDByExternalID(ctx context.Context, adapterType, externalID string) (string, bool, error) {
	const query = `
        SELECT host_id FROM host_adapters
        WHERE adapter_type=$1 AND external_id=$2 AND status='ACTIVE'
        LIMIT 1`
	var hostID string
	err := r.pool.QueryRow(ctx, query, adapterType, externalID).Scan(&hostID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hostID, true, nil
}
