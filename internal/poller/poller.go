// Package poller keeps a results view converging on the server's aggregation
// snapshot while a countdown is active: fetch on a fixed interval, tolerate
// transient failures, and never let a stale response overwrite newer data.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/victornm/hivemind/internal/domain"
)

const (
	defaultInterval    = 2 * time.Second
	defaultMaxFailures = 3
)

type State string

const (
	// StateIdle: not started, or torn down.
	StateIdle State = "idle"
	// StatePolling: fetching on every tick.
	StatePolling State = "polling"
	// StatePaused: too many consecutive failures; the last good snapshot is
	// retained and only a manual Retry resumes polling.
	StatePaused State = "paused"
)

// FetchFunc requests the current aggregation snapshot.
type FetchFunc func(ctx context.Context) (*domain.ConsensusResults, error)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	Fetch    FetchFunc
	Interval time.Duration

	// MaxFailures is the consecutive-failure count that pauses polling. Any
	// single success resets the streak.
	MaxFailures int

	// OnSnapshot is invoked for every newly applied snapshot, with the
	// poller's lock held; it must not call back into the poller.
	OnSnapshot func(*domain.ConsensusResults)

	NewTickerFunc func(d time.Duration) Ticker
}

type Poller struct {
	fetch       FetchFunc
	interval    time.Duration
	maxFailures int
	onSnapshot  func(*domain.ConsensusResults)
	newTicker   func(d time.Duration) Ticker

	mu          sync.Mutex
	state       State
	failures    int
	seq         uint64
	lastApplied uint64
	snapshot    *domain.ConsensusResults
	stopped     bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(c Config) *Poller {
	if c.Interval == 0 {
		c.Interval = defaultInterval
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = defaultMaxFailures
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = func(d time.Duration) Ticker {
			return tickerWrap{time.NewTicker(d)}
		}
	}

	return &Poller{
		fetch:       c.Fetch,
		interval:    c.Interval,
		maxFailures: c.MaxFailures,
		onSnapshot:  c.OnSnapshot,
		newTicker:   c.NewTickerFunc,
		state:       StateIdle,
	}
}

// Start begins polling: one immediate fetch, then one per tick. The context
// carries the countdown: when it is cancelled or its deadline passes, the
// poller tears down and no callback fires afterwards. Start is a no-op
// unless the poller is idle.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.state = StatePolling
	p.stopped = false
	p.done = make(chan struct{})
	ctx = p.ctx
	p.mu.Unlock()

	go p.poll(ctx)

	go func() {
		defer close(p.done)

		t := p.newTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				p.teardown()
				return
			case <-t.C():
				if p.State() == StatePolling {
					go p.poll(ctx)
				}
			}
		}
	}()
}

// Stop tears the poller down and waits for the loop to exit. In-flight
// fetches become inert: their responses are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Retry issues one manual fetch while paused; on success polling resumes.
func (p *Poller) Retry() {
	p.mu.Lock()
	if p.stopped || p.state != StatePaused {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.mu.Unlock()

	p.poll(ctx)
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the last good snapshot, nil before the first success. It
// stays available while paused so a renderer never has to blank a screen
// that has shown data.
func (p *Poller) Snapshot() *domain.ConsensusResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

func (p *Poller) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	snap, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	if err != nil {
		p.failures++
		if p.failures >= p.maxFailures {
			p.state = StatePaused
		}
		return
	}

	// Any success resets the streak, even one whose payload is stale.
	p.failures = 0
	if p.state == StatePaused {
		p.state = StatePolling
	}

	// Responses may arrive out of issue order; adopt only responses newer
	// than the last applied one.
	if seq <= p.lastApplied {
		return
	}

	p.lastApplied = seq
	p.snapshot = snap
	if p.onSnapshot != nil {
		p.onSnapshot(snap)
	}
}

func (p *Poller) teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.state = StateIdle
}

type tickerWrap struct {
	*time.Ticker
}

func (t tickerWrap) C() <-chan time.Time { return t.Ticker.C }
