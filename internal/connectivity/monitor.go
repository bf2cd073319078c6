// Package connectivity watches whether the remote store can be reached and
// raises edge-triggered events on each transition.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is a reachability transition.
type Event int

const (
	BecameReachable Event = iota
	BecameUnreachable
)

func (e Event) String() string {
	if e == BecameReachable {
		return "became-reachable"
	}
	return "became-unreachable"
}

// Pinger probes the remote store. A nil error means reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor periodically probes a Pinger and notifies subscribers on every
// reachable/unreachable transition. The very first probe also fires, so a
// subscriber that wants to sync on startup does not need a separate kick.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	known     bool
	reachable bool
	handlers  []func(Event)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(pinger Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Subscribe registers fn to be called on every transition. Handlers run on
// the monitor's goroutine and should hand off long work.
func (m *Monitor) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Reachable returns the last observed state. Before the first probe it
// reports unreachable, which errs on the side of queueing writes.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known && m.reachable
}

// CheckNow probes immediately, firing transition events as usual, and
// returns the observed state.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	return m.probe(ctx)
}

// Start launches the periodic probe loop.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop shuts the probe loop down and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()
	reachable := err == nil

	m.mu.Lock()
	changed := !m.known || m.reachable != reachable
	m.known = true
	m.reachable = reachable
	handlers := make([]func(Event), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	if !changed {
		return reachable
	}

	ev := BecameUnreachable
	if reachable {
		ev = BecameReachable
	}
	if m.logger != nil {
		m.logger.Info("remote store connectivity changed", "event", ev.String())
	}
	for _, fn := range handlers {
		fn(ev)
	}
	return reachable
}
