package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	mu        sync.Mutex
	calls     []time.Duration
	deleted   int64
	err       error
	cleanedCh chan struct{}
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, retention)
	f.mu.Unlock()
	if f.cleanedCh != nil {
		f.cleanedCh <- struct{}{}
	}
	return f.deleted, f.err
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	cfg := CleanupAuditEventsTask{RetentionDays: 7}.Config()

	assert.Equal(t, "cleanup_audit_events", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestCleanupAuditEvents(t *testing.T) {
	t.Run("uses task retention", func(t *testing.T) {
		cleaner := &fakeCleaner{deleted: 4}

		deleted, err := CleanupAuditEvents(cleaner, CleanupAuditEventsTask{RetentionDays: 7})

		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)
		assert.Equal(t, []time.Duration{7 * 24 * time.Hour}, cleaner.calls)
	})

	t.Run("defaults retention", func(t *testing.T) {
		cleaner := &fakeCleaner{}

		_, err := CleanupAuditEvents(cleaner, CleanupAuditEventsTask{})

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{DefaultAuditRetentionDays * 24 * time.Hour}, cleaner.calls)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		storeErr := errors.New("disk full")
		cleaner := &fakeCleaner{err: storeErr}

		_, err := CleanupAuditEventsProcessor(cleaner)(context.Background(), CleanupAuditEventsTask{RetentionDays: 1})

		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("nil cleaner", func(t *testing.T) {
		_, err := CleanupAuditEvents(nil, CleanupAuditEventsTask{})
		assert.Error(t, err)
	})
}

func TestCleanupAuditEventsQueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "library.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	cleaner := &fakeCleaner{cleanedCh: make(chan struct{}, 1)}
	client.Register(NewCleanupAuditEventsQueue(cleaner))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	_, err = client.Add(CleanupAuditEventsTask{RetentionDays: 2}).Save()
	require.NoError(t, err)

	select {
	case <-cleaner.cleanedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup task was not executed within timeout")
	}

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.Equal(t, []time.Duration{48 * time.Hour}, cleaner.calls)
}
