package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTicket(t *testing.T, title string, priority domain.TicketPriority, key *string, at time.Time) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.NewTicketInput{Title: title, Priority: priority, SourceEventID: key}, at)
	require.NoError(t, err)
	return ticket
}

func TestCreateIfAbsentReturnsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	key := "uptime-kuma:1:20240101T000000"

	first, created, err := store.CreateIfAbsent(ctx, newTicket(t, "a", "", &key, base))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.CreateIfAbsent(ctx, newTicket(t, "b", "", &key, base))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a", second.Title)
}

func TestApplyChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	ticket := newTicket(t, "a", "", nil, base)
	require.NoError(t, store.Create(ctx, ticket))

	out, err := ticket.Receive(nil, base)
	require.NoError(t, err)
	saved, err := store.Apply(ctx, out, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Len(t, saved.Activities, 1)

	_, err = store.Apply(ctx, out, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)

	out.Ticket.ID = "missing"
	_, err = store.Apply(ctx, out, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOpenOrdersByPriority(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	low := newTicket(t, "low", domain.TicketPriorityLow, nil, base)
	crit := newTicket(t, "crit", domain.TicketPriorityCritical, nil, base)
	closed := newTicket(t, "closed", domain.TicketPriorityCritical, nil, base)
	closed.Status = domain.TicketStatusClosed
	for _, ticket := range []*domain.Ticket{low, crit, closed} {
		require.NoError(t, store.Create(ctx, ticket))
	}

	open, err := store.ListOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "crit", open[0].Title)
	assert.Equal(t, "low", open[1].Title)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.New)
	assert.Equal(t, int64(1), stats.Closed)
	assert.Equal(t, int64(1), stats.Critical)
}

func TestListWithFilter(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	for i, title := range []string{"db disk full", "web down", "db slow"} {
		require.NoError(t, store.Create(ctx, newTicket(t, title, "", nil, base.Add(time.Duration(i)*time.Minute))))
	}

	keyword := "DB"
	got, total, err := store.ListWithFilter(ctx, repository.TicketFilter{Keyword: &keyword, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 1)
	assert.Equal(t, "db slow", got[0].Title)
}

func TestMarkAllAsReadOnlyTouchesSent(t *testing.T) {
	ctx := context.Background()
	store := NewNotificationStore()

	sent := domain.NewNotification("u1", domain.NotificationTicketCreated, domain.ChannelInApp, "t", "c", base)
	sent.MarkAsSent(base)
	failed := domain.NewNotification("u1", domain.NotificationTicketCreated, domain.ChannelSlack, "t", "c", base)
	failed.MarkAsFailed("x", base)
	other := domain.NewNotification("u2", domain.NotificationTicketCreated, domain.ChannelInApp, "t", "c", base)
	other.MarkAsSent(base)
	for _, n := range []*domain.Notification{sent, failed, other} {
		require.NoError(t, store.Create(ctx, n))
	}

	changed, err := store.MarkAllAsRead(ctx, "u1", base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	unread, err := store.CountByStatus(ctx, "u1", domain.NotificationSent)
	require.NoError(t, err)
	assert.Zero(t, unread)
	unread, err = store.CountByStatus(ctx, "u2", domain.NotificationSent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	retryable, err := store.FindRetryable(ctx, domain.MaxNotificationRetries, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, failed.ID, retryable[0].ID)

	claimed, err := store.ClaimRetry(ctx, failed.ID, failed.RetryCount)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = store.ClaimRetry(ctx, failed.ID, failed.RetryCount)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim of the same attempt")
	retryable, err = store.FindRetryable(ctx, domain.MaxNotificationRetries, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)
}

func TestSettingUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewSettingStore()

	_, err := store.Find(ctx, "u1", domain.NotificationHostDown, domain.ChannelSlack)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	setting := &domain.NotificationSetting{UserID: "u1", Type: domain.NotificationHostDown, Channel: domain.ChannelSlack, CreatedAt: base}
	require.NoError(t, store.Upsert(ctx, setting))
	again := &domain.NotificationSetting{UserID: "u1", Type: domain.NotificationHostDown, Channel: domain.ChannelSlack, Enabled: true, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, store.Upsert(ctx, again))

	found, err := store.Find(ctx, "u1", domain.NotificationHostDown, domain.ChannelSlack)
	require.NoError(t, err)
	assert.True(t, found.Enabled)
	assert.Equal(t, setting.ID, found.ID)
	require.NotNil(t, found.UpdatedAt)

	all, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
