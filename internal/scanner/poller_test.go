package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predixlabs/crossarb/pkg/types"
)

// blockingPairSource counts cycles and holds each one until released.
type blockingPairSource struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (s *blockingPairSource) Pairs(ctx context.Context) ([]types.CrossExchangePair, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return nil, nil
}

func (s *blockingPairSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newIdlePoller(t *testing.T, source PairSource) *Poller {
	t.Helper()
	sources, _, _ := defaultSources()
	p, err := NewPoller(PollerConfig{
		Pipeline: newTestPipeline(t, sources),
		Source:   source,
		Interval: time.Hour,
		Clock:    clock.NewMock(),
	})
	require.NoError(t, err)
	return p
}

func TestPoller_CoalescesConcurrentTriggers(t *testing.T) {
	source := &blockingPairSource{release: make(chan struct{})}
	p := newIdlePoller(t, source)

	p.Trigger()
	require.Eventually(t, func() bool { return source.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Burst of triggers while a cycle is in flight coalesces into one
	// queued follow-up.
	p.Trigger()
	p.Trigger()
	p.Trigger()

	close(source.release)

	require.Eventually(t, func() bool { return source.callCount() == 2 },
		time.Second, 5*time.Millisecond)

	// No third cycle appears.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, source.callCount())
	require.NoError(t, p.Close())
}

func TestPoller_ScheduledCycles(t *testing.T) {
	source := &blockingPairSource{}
	sources, _, _ := defaultSources()
	mock := clock.NewMock()
	p, err := NewPoller(PollerConfig{
		Pipeline: newTestPipeline(t, sources),
		Source:   source,
		Interval: 30 * time.Second,
		Clock:    mock,
	})
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return source.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Give the ticker goroutine a beat to register with the mock clock.
	time.Sleep(10 * time.Millisecond)
	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool { return source.callCount() == 2 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, p.Close())
}

func TestPoller_CloseWaitsForCycle(t *testing.T) {
	source := &blockingPairSource{release: make(chan struct{})}
	p := newIdlePoller(t, source)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.Trigger()
	require.Eventually(t, func() bool { return source.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = p.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(source.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the cycle finished")
	}
}
