package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/toribot/internal/generator"
)

// DefaultSettleDelay is the pause between tearing down a chain and
// spawning its replacement.
const DefaultSettleDelay = 200 * time.Millisecond

// Spawner starts a chain for url.
type Spawner interface {
	Spawn(ctx context.Context, id, url string) (*Chain, error)
}

// Stopper is the audio player reading the chain's output.
type Stopper interface {
	Stop()
	Idle() bool
}

// Manager owns the single live chain.
type Manager struct {
	spawner Spawner
	player  Stopper
	settle  time.Duration
	ids     generator.Generator[string]

	mu      sync.Mutex
	epoch   uint64
	current *Chain
	state   State
}

// NewManager returns a Manager. player may be nil when nothing reads the
// output through a player.
func NewManager(spawner Spawner, player Stopper, settle time.Duration) *Manager {
	return &Manager{
		spawner: spawner,
		player:  player,
		settle:  settle,
		ids:     &generator.UUIDV4Generator{},
	}
}

// Acquire tears down the current chain and spawns a new one for url,
// returning the transcoder's Ogg/Opus output.
func (m *Manager) Acquire(ctx context.Context, url string) (io.ReadCloser, error) {
	return m.AcquireReserved(ctx, m.Reserve(), url)
}

// Reserve tears down the current chain and returns a ticket for the next
// acquisition. Tickets are ordered by the order of Reserve calls, not by
// the order their acquisitions start: a caller that serializes its own
// transitions reserves under its lock and acquires outside it.
func (m *Manager) Reserve() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.teardownLocked()
	m.state = StateSpawning
	return m.epoch
}

// AcquireReserved spawns a chain for url under ticket. It returns
// ErrSuperseded without touching the live chain if a newer Reserve or a
// Teardown came after ticket.
func (m *Manager) AcquireReserved(ctx context.Context, ticket uint64, url string) (io.ReadCloser, error) {
	if !m.isCurrent(ticket) {
		return nil, ErrSuperseded
	}

	if m.settle > 0 {
		timer := time.NewTimer(m.settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			m.abandon(ticket)
			return nil, ctx.Err()
		}
	}
	if !m.isCurrent(ticket) {
		return nil, ErrSuperseded
	}

	id, err := m.ids.Next()
	if err != nil {
		m.abandon(ticket)
		return nil, fmt.Errorf("failed to generate chain id: %w", err)
	}

	chain, err := m.spawner.Spawn(ctx, id, url)
	if err != nil {
		if !m.abandon(ticket) {
			return nil, ErrSuperseded
		}
		return nil, fmt.Errorf("failed to spawn pipeline for %s: %w", url, err)
	}

	m.mu.Lock()
	if m.epoch != ticket {
		m.mu.Unlock()
		slog.Debug("discarding superseded pipeline", "chain", chain.ID)
		discard(chain)
		return nil, ErrSuperseded
	}
	m.current = chain
	m.state = StatePiped
	m.mu.Unlock()

	go m.watch(chain)
	return chain.Output, nil
}

// Teardown stops the player, kills the live chain and supersedes any
// acquisition in flight. It is safe to call at any time.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.teardownLocked()
	m.state = StateNone
}

// Release kills the live chain if out is its output. Unlike Teardown it
// neither stops the player nor supersedes acquisitions in flight, so a
// caller can drop a stream it acquired but no longer wants.
func (m *Manager) Release(out io.Reader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Output != out {
		return
	}
	discard(m.current)
	m.current = nil
	m.state = StateNone
}

// State reports the state of the newest chain.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the live chain, or nil.
func (m *Manager) Current() *Chain {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) teardownLocked() {
	if m.player != nil && !m.player.Idle() {
		m.player.Stop()
	}
	if m.current == nil {
		return
	}
	if err := m.current.Kill(); err != nil {
		slog.Error("failed to kill pipeline", "chain", m.current.ID, "error", err)
	}
	m.current = nil
}

func (m *Manager) isCurrent(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch == epoch
}

// abandon resets the state after a failed acquisition. It reports false
// when the acquisition had already been superseded.
func (m *Manager) abandon(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return false
	}
	m.state = StateNone
	return true
}

func (m *Manager) watch(chain *Chain) {
	for _, p := range []Process{chain.Acquire, chain.Transcode} {
		<-p.Done()
		if err := p.Err(); err != nil {
			slog.Error("pipeline process failed", "process", p.Name(), "chain", chain.ID, "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == chain {
		m.current = nil
		m.state = StateTerminated
		slog.Debug("pipeline terminated", "chain", chain.ID)
	}
}

func discard(chain *Chain) {
	if err := chain.Kill(); err != nil {
		slog.Error("failed to kill superseded pipeline", "chain", chain.ID, "error", err)
	}
	_ = chain.Output.Close()
}
