package poller_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/hivemind/internal/domain"
	"github.com/victornm/hivemind/internal/poller"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestPoller_AppliesSnapshotsOnEachTick(t *testing.T) {
	var n atomic.Int64
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		return snap(n.Add(1)), nil
	}

	p, ft, rec := makePoller(t, fetch)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, tick, "initial fetch should apply")

	ft.tick()
	require.Eventually(t, func() bool { return rec.len() == 2 }, waitFor, tick)

	require.Equal(t, int64(2), p.Snapshot().TotalPlayers)
	require.Equal(t, poller.StatePolling, p.State())
}

func TestPoller_PausesAfterThreeConsecutiveFailures(t *testing.T) {
	var failing atomic.Bool
	var calls atomic.Int64
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		calls.Add(1)
		if failing.Load() {
			return nil, errors.New("fetch failed")
		}
		return snap(1), nil
	}

	p, ft, rec := makePoller(t, fetch)
	p.Start(context.Background())
	defer p.Stop()

	// One good snapshot first, so pausing has something to retain.
	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, tick)

	failing.Store(true)
	for i := 1; i <= 3; i++ {
		ft.tick()
		require.Eventually(t, func() bool { return p.ConsecutiveFailures() == i }, waitFor, tick)
	}

	require.Equal(t, poller.StatePaused, p.State())
	require.Equal(t, int64(1), p.Snapshot().TotalPlayers, "last good snapshot must be retained")

	// Paused: further ticks issue no fetches.
	before := calls.Load()
	ft.tick()
	require.Never(t, func() bool { return calls.Load() > before }, 100*time.Millisecond, tick)

	// Manual retry with a healthy backend resumes polling.
	failing.Store(false)
	p.Retry()

	require.Equal(t, poller.StatePolling, p.State())
	require.Zero(t, p.ConsecutiveFailures())
	require.Equal(t, 2, rec.len())
}

func TestPoller_SingleSuccessResetsFailureStreak(t *testing.T) {
	// Fail, fail, succeed: two failures never reach the pause threshold.
	var n atomic.Int64
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		if n.Add(1) <= 2 {
			return nil, errors.New("fetch failed")
		}
		return snap(7), nil
	}

	p, ft, rec := makePoller(t, fetch)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return p.ConsecutiveFailures() == 1 }, waitFor, tick)
	ft.tick()
	require.Eventually(t, func() bool { return p.ConsecutiveFailures() == 2 }, waitFor, tick)

	ft.tick()
	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, tick)

	require.Zero(t, p.ConsecutiveFailures())
	require.Equal(t, poller.StatePolling, p.State())
}

func TestPoller_StaleResponseDoesNotRegressState(t *testing.T) {
	// Request #1 is slow; request #2 returns first. When #1 finally lands
	// its payload must be discarded.
	var n atomic.Int64
	slow := make(chan *domain.ConsensusResults)
	fast := make(chan *domain.ConsensusResults)
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		switch n.Add(1) {
		case 1:
			return <-slow, nil
		case 2:
			return <-fast, nil
		default:
			return snap(99), nil
		}
	}

	p, ft, rec := makePoller(t, fetch)
	p.Start(context.Background())
	defer p.Stop()

	ft.tick() // request #2, while #1 is still in flight

	fast <- snap(2)
	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, tick)
	require.Equal(t, int64(2), p.Snapshot().TotalPlayers)

	slow <- snap(1)

	ft.tick() // request #3 proves the poller moved on
	require.Eventually(t, func() bool { return rec.len() == 2 }, waitFor, tick)

	require.Equal(t, []int64{2, 99}, rec.totals(), "stale payload 1 must never render")
	require.Equal(t, int64(99), p.Snapshot().TotalPlayers)
}

func TestPoller_StopMakesInflightResponsesInert(t *testing.T) {
	block := make(chan *domain.ConsensusResults)
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		return <-block, nil
	}

	p, _, rec := makePoller(t, fetch)
	p.Start(context.Background())

	p.Stop()
	require.Equal(t, poller.StateIdle, p.State())

	// The blocked fetch completes after teardown: nothing may be applied.
	block <- snap(1)
	require.Never(t, func() bool { return rec.len() > 0 }, 100*time.Millisecond, tick)
	require.Nil(t, p.Snapshot())
}

func TestPoller_CountdownCancellationTearsDown(t *testing.T) {
	fetch := func(ctx context.Context) (*domain.ConsensusResults, error) {
		return snap(1), nil
	}

	p, _, _ := makePoller(t, fetch)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	require.Eventually(t, func() bool { return p.State() == poller.StateIdle }, waitFor, tick)
}

func makePoller(t *testing.T, fetch poller.FetchFunc) (*poller.Poller, *fakeTicker, *recorder) {
	t.Helper()

	ft := &fakeTicker{ch: make(chan time.Time)}
	rec := &recorder{}

	p := poller.New(poller.Config{
		Fetch:      fetch,
		OnSnapshot: rec.record,
		NewTickerFunc: func(d time.Duration) poller.Ticker {
			return ft
		},
	})

	return p, ft, rec
}

func snap(totalPlayers int64) *domain.ConsensusResults {
	return &domain.ConsensusResults{TotalPlayers: totalPlayers}
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

func (f *fakeTicker) tick() {
	f.ch <- time.Time{}
}

type recorder struct {
	mu    sync.Mutex
	snaps []*domain.ConsensusResults
}

func (r *recorder) record(s *domain.ConsensusResults) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) totals() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	totals := make([]int64, 0, len(r.snaps))
	for _, s := range r.snaps {
		totals = append(totals, s.TotalPlayers)
	}
	return totals
}
