package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls []int
	err   error
	fired chan struct{}
}

func (f *fakeEnqueuer) EnqueueAuditCleanup(retentionDays int) error {
	f.mu.Lock()
	f.calls = append(f.calls, retentionDays)
	f.mu.Unlock()
	if f.fired != nil {
		select {
		case f.fired <- struct{}{}:
		default:
		}
	}
	return f.err
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"@daily", false},
		{"@every 1h", false},
		{"", true},
		{"not a schedule", true},
		{"0 0 3 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeEnqueuer{}, "", 30)
	assert.Nil(t, s.NextRun())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())

	// Starting twice is a no-op.
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler(&fakeEnqueuer{}, "every tuesday", 30)

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_Fires(t *testing.T) {
	enqueuer := &fakeEnqueuer{fired: make(chan struct{}, 1)}
	s := NewAuditCleanupScheduler(enqueuer, "@every 1s", 7)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	select {
	case <-enqueuer.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("cleanup was not enqueued within timeout")
	}

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	assert.Equal(t, 7, enqueuer.calls[0])
}

func TestAuditCleanupScheduler_RunNow(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewAuditCleanupScheduler(enqueuer, "", 14)

	require.NoError(t, s.RunNow())
	assert.Equal(t, []int{14}, enqueuer.calls)

	enqueuer.err = errors.New("queue closed")
	assert.Error(t, s.RunNow())
}
