//go:build integration

package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/persistence"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// Run with: POSTGRES_TEST_DSN=postgres://... go test -tags integration ./internal/repository/
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE ticket_activities, tickets, notifications, notification_settings, host_adapters, users CASCADE`)
	require.NoError(t, err)
	return pool
}

func newTicket(t *testing.T, key *string) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.NewTicketInput{
		Title:         "db-1 unreachable",
		Source:        domain.TicketSourcePrometheus,
		SourceEventID: key,
	}, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	return ticket
}

func TestTicketRepositoryCreateIfAbsent(t *testing.T) {
	repo := repository.NewTicketRepository(setupPool(t))
	ctx := context.Background()
	key := "prometheus:fp1:20240101T000000"

	var wg sync.WaitGroup
	ids := make(chan string, 8)
	created := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok, err := repo.CreateIfAbsent(ctx, newTicket(t, &key))
			if !assert.NoError(t, err) {
				return
			}
			ids <- got.ID
			created <- ok
		}()
	}
	wg.Wait()
	close(ids)
	close(created)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
	}
	n := 0
	for ok := range created {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)

	byKey, err := repo.GetBySourceEventID(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, byKey.ID)
}

func TestTicketRepositoryApplyChecksVersion(t *testing.T) {
	repo := repository.NewTicketRepository(setupPool(t))
	ctx := context.Background()
	ticket := newTicket(t, nil)
	require.NoError(t, repo.Create(ctx, ticket))

	actor := "op-1"
	outcome, err := ticket.Receive(&actor, time.Now().UTC())
	require.NoError(t, err)
	updated, err := repo.Apply(ctx, outcome, ticket.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReceived, updated.Status)

	_, err = repo.Apply(ctx, outcome, ticket.Version)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Activities, 1)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationRepositoryRetryable(t *testing.T) {
	pool := setupPool(t)
	repo := repository.NewNotificationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	n := domain.NewNotification("op-1", domain.NotificationTicketCreated, domain.ChannelSlack, "New ticket", "", now)
	require.NoError(t, repo.Create(ctx, n))
	n.MarkAsFailed("webhook returned 500", now)
	require.NoError(t, repo.Update(ctx, n))

	retryable, err := repo.FindRetryable(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, n.ID, retryable[0].ID)

	claimed, err := repo.ClaimRetry(ctx, n.ID, 0)
	require.NoError(t, err)
	assert.False(t, claimed, "stale retry count")
	claimed, err = repo.ClaimRetry(ctx, n.ID, n.RetryCount)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.ClaimRetry(ctx, n.ID, n.RetryCount)
	require.NoError(t, err)
	assert.False(t, claimed)

	settings := repository.NewNotificationSettingRepository(pool)
	setting := &domain.NotificationSetting{
		ID: n.ID, UserID: "op-1", Type: domain.NotificationTicketCreated, Channel: domain.ChannelSlack, CreatedAt: now,
	}
	require.NoError(t, settings.Upsert(ctx, setting))
	setting.Enabled = true
	require.NoError(t, settings.Upsert(ctx, setting))

	found, err := settings.Find(ctx, "op-1", domain.NotificationTicketCreated, domain.ChannelSlack)
	require.NoError(t, err)
	assert.True(t, found.Enabled)
	require.NotNil(t, found.UpdatedAt)
}
