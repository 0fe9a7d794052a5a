package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls int
	err   error
}

func (c *countingCleaner) CleanupExpiredRateLimits() (int64, error) {
	c.calls++
	return 2, c.err
}

func TestCronService_StartRegistersConfiguredJobs(t *testing.T) {
	svc := NewCronService(session.NewMemoryStore(time.Hour), &countingCleaner{}, nil, quietLogger())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	status := svc.GetJobStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 2, status["job_count"])
}

func TestCronService_RunCleanupNow(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(time.Nanosecond)
	require.NoError(t, store.Set(ctx, uuid.New(), session.KeyPassengers, map[string]string{"a": "b"}))
	time.Sleep(time.Millisecond)

	cleaner := &countingCleaner{err: errors.New("db down")}
	svc := NewCronService(store, cleaner, nil, quietLogger())
	svc.RunCleanupNow()

	assert.Equal(t, 1, cleaner.calls)
	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

type stubVisitCleaner struct {
	deleted time.Duration
	counted bool
}

func (v *stubVisitCleaner) CountActiveSince(since time.Time) (int64, error) {
	v.counted = true
	return 3, nil
}

func (v *stubVisitCleaner) DeleteInactive(olderThan time.Duration) (int64, error) {
	v.deleted = olderThan
	return 1, nil
}

func TestCronService_VisitCleanup(t *testing.T) {
	visits := &stubVisitCleaner{}
	svc := NewCronService(nil, nil, nil, quietLogger()).WithVisitCleaner(visits)

	require.NoError(t, svc.Start())
	assert.Equal(t, 1, svc.GetJobStatus()["job_count"])
	svc.Stop()

	svc.RunCleanupNow()
	assert.Equal(t, VisitRetention, visits.deleted)
	assert.True(t, visits.counted)
}
