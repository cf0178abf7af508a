// Package playback decides what plays now and what plays next.
//
// A Machine owns the now-playing record, the manual queue, the play
// history and the autoplay flag for the single playback session. Explicit
// requests come in through its methods; the end of every playback arrives
// as a player event consumed by Run, which advances to the queue head or to
// a recommendation.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/glizzus/toribot/internal/opus"
	"github.com/glizzus/toribot/internal/recommend"
	"github.com/glizzus/toribot/internal/title"
	"github.com/glizzus/toribot/internal/track"
	"github.com/glizzus/toribot/internal/voice"
)

var (
	// ErrNothingPlaying is returned by Skip when nothing is attributed to
	// the requesting session.
	ErrNothingPlaying = errors.New("nothing is playing")
	// ErrVoiceTimeout is returned by Play when the voice connection did not
	// become ready in time.
	ErrVoiceTimeout = errors.New("timed out connecting to voice")
	// ErrSuperseded is returned by Play when a newer transition overtook it.
	ErrSuperseded = errors.New("playback request superseded")
)

const (
	// DefaultReadyTimeout is how long Play waits for a voice connection.
	DefaultReadyTimeout = 30 * time.Second

	maxAdvanceAttempts = 3
)

// Pipeline produces audio streams for URLs. Reserve is called under the
// machine's lock, so tickets follow the order of the machine's transitions;
// AcquireReserved with an outdated ticket must fail without side effects.
type Pipeline interface {
	Reserve() uint64
	AcquireReserved(ctx context.Context, ticket uint64, url string) (io.ReadCloser, error)
	Teardown()
	Release(out io.Reader)
}

// Player plays one stream at a time and reports when it ends.
type Player interface {
	Play(source io.ReadCloser) uint64
	Stop()
	Events() <-chan opus.Event
	SetSink(chan<- []byte)
}

// Transport manages voice connections.
type Transport interface {
	Join(guildID, channelID string) (voice.Connection, error)
	AwaitReady(ctx context.Context, conn voice.Connection, timeout time.Duration) error
	Subscribe(conn voice.Connection, sink voice.SinkSetter) error
	Destroy(conn voice.Connection) error
}

// Recommender suggests the next track for autoplay.
type Recommender interface {
	Next(ctx context.Context, seed recommend.Seed) (recommend.Pick, bool)
}

// NowPlaying describes the current track. The zero value means nothing is
// playing; it is always replaced whole.
type NowPlaying struct {
	Title     string
	Artist    string
	VideoURL  string
	VideoID   string
	SessionID string
}

func (n NowPlaying) Empty() bool {
	return n == NowPlaying{}
}

// Request is an explicit play request.
type Request struct {
	Track track.Track
	// SessionID is the guild the request came from.
	SessionID string
	// ChannelID is the voice channel to join if no connection is live.
	ChannelID string
}

// Snapshot is a consistent view of the machine's state.
type Snapshot struct {
	NowPlaying NowPlaying
	Queue      []track.Track
	History    []string
	Autoplay   bool
	// Playing is false while idle between tracks.
	Playing bool
}

type Config struct {
	ReadyTimeout time.Duration
	Autoplay     bool
}

type Machine struct {
	pipeline    Pipeline
	player      Player
	transport   Transport
	recommender Recommender
	cfg         Config

	mu         sync.Mutex
	nowPlaying NowPlaying
	queue      []track.Track
	history    *History
	autoplay   bool
	conn       voice.Connection
	// epoch identifies the latest transition. Work started under an older
	// epoch must not publish its result.
	epoch uint64
	// playerGen is the generation of the playback this machine started, or
	// 0 when no event is awaited.
	playerGen uint64
	// stops counts calls to Stop. A Play that was joining voice when Stop
	// ran gives up.
	stops uint64

	advances sync.WaitGroup
}

func NewMachine(p Pipeline, player Player, t Transport, r Recommender, cfg Config) *Machine {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	return &Machine{
		pipeline:    p,
		player:      player,
		transport:   t,
		recommender: r,
		cfg:         cfg,
		history:     NewHistory(HistoryLimit),
		autoplay:    cfg.Autoplay,
	}
}

// Run consumes player events until ctx is done. Exactly one goroutine
// should call Run.
func (m *Machine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.player.Events():
			m.handleEvent(ctx, ev)
		}
	}
}

// Wait blocks until advances started so far have finished.
func (m *Machine) Wait() {
	m.advances.Wait()
}

func (m *Machine) handleEvent(ctx context.Context, ev opus.Event) {
	m.mu.Lock()
	if ev.Generation == 0 || ev.Generation != m.playerGen {
		m.mu.Unlock()
		slog.Debug("ignoring stale player event", "generation", ev.Generation)
		return
	}
	m.playerGen = 0
	m.epoch++
	epoch := m.epoch
	if ev.Err != nil {
		slog.Warn("playback failed, tearing down pipeline", "videoID", m.nowPlaying.VideoID, "error", ev.Err)
		m.pipeline.Teardown()
	}
	m.advances.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.advances.Done()
		m.advance(ctx, epoch)
	}()
}

// Play preempts whatever is playing and starts req.Track, joining the
// requester's voice channel first if needed.
func (m *Machine) Play(ctx context.Context, req Request) error {
	t := req.Track
	if !track.ValidID(t.VideoID) {
		if id, ok := track.ExtractVideoID(t.URL); ok {
			t.VideoID = id
		}
	}
	if t.URL == "" && track.ValidID(t.VideoID) {
		t.URL = track.WatchURL(t.VideoID)
	}
	if t.URL == "" {
		return fmt.Errorf("track %q has no playable url", t.Title)
	}

	m.mu.Lock()
	stops := m.stops
	m.mu.Unlock()

	if err := m.ensureConnection(ctx, stops, req.SessionID, req.ChannelID); err != nil {
		return err
	}

	m.mu.Lock()
	if m.stops != stops {
		m.mu.Unlock()
		return ErrSuperseded
	}
	m.epoch++
	epoch := m.epoch
	m.playerGen = 0
	ticket := m.pipeline.Reserve()
	m.mu.Unlock()

	return m.start(ctx, epoch, ticket, t, req.SessionID)
}

// start acquires a stream for t and publishes it if epoch is still current.
func (m *Machine) start(ctx context.Context, epoch, ticket uint64, t track.Track, session string) error {
	out, err := m.pipeline.AcquireReserved(ctx, ticket, t.URL)
	if err != nil {
		if m.stale(epoch) {
			return ErrSuperseded
		}
		return fmt.Errorf("failed to acquire stream for %s: %w", t.URL, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.pipeline.Release(out)
		_ = out.Close()
		return ErrSuperseded
	}

	m.nowPlaying = NowPlaying{
		Title:     t.Title,
		Artist:    title.Parse(t.Title).Artist,
		VideoURL:  t.URL,
		VideoID:   t.VideoID,
		SessionID: session,
	}
	if track.ValidID(t.VideoID) {
		m.history.Push(t.VideoID)
	}
	m.playerGen = m.player.Play(out)
	slog.Info("now playing", "title", t.Title, "videoID", t.VideoID, "session", session)
	return nil
}

func (m *Machine) stale(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch != epoch
}

// ensureConnection joins channelID unless a ready connection exists. It
// returns ErrSuperseded, destroying what it joined, if Stop ran since stops
// was read.
func (m *Machine) ensureConnection(ctx context.Context, stops uint64, guildID, channelID string) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn != nil && conn.Ready() {
		return nil
	}
	if conn != nil {
		m.dropConnection(conn)
	}
	if channelID == "" {
		return voice.ErrNotInVoice
	}

	conn, err := m.transport.Join(guildID, channelID)
	if err != nil {
		return fmt.Errorf("unable to join the voice channel: %w", err)
	}
	if err := m.transport.AwaitReady(ctx, conn, m.cfg.ReadyTimeout); err != nil {
		if derr := m.transport.Destroy(conn); derr != nil {
			slog.Warn("failed to destroy voice connection", "guildID", guildID, "error", derr)
		}
		if errors.Is(err, voice.ErrNotReady) {
			return fmt.Errorf("%w after %s", ErrVoiceTimeout, m.cfg.ReadyTimeout)
		}
		return err
	}
	if err := m.transport.Subscribe(conn, m.player); err != nil {
		_ = m.transport.Destroy(conn)
		return fmt.Errorf("failed to subscribe player: %w", err)
	}

	m.mu.Lock()
	if m.stops != stops {
		m.mu.Unlock()
		if err := m.transport.Destroy(conn); err != nil {
			slog.Warn("failed to destroy voice connection", "guildID", guildID, "error", err)
		}
		return ErrSuperseded
	}
	previous := m.conn
	m.conn = conn
	m.mu.Unlock()
	if previous != nil && previous != conn {
		m.dropConnection(previous)
	}
	return nil
}

func (m *Machine) dropConnection(conn voice.Connection) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	if err := m.transport.Destroy(conn); err != nil {
		slog.Warn("failed to destroy voice connection", "guildID", conn.GuildID(), "error", err)
	}
}

// advance picks and starts the next track after a playback ended.
func (m *Machine) advance(ctx context.Context, epoch uint64) {
	for range maxAdvanceAttempts {
		next, session, ticket, ok := m.nextTrack(ctx, epoch)
		if !ok {
			return
		}

		err := m.start(ctx, epoch, ticket, next, session)
		if err == nil || errors.Is(err, ErrSuperseded) {
			return
		}
		slog.Error("failed to start next track", "videoID", next.VideoID, "error", err)
	}
}

// nextTrack returns the queue head, else a recommendation when autoplay is
// on, along with the pipeline ticket reserved for it. It reports false when
// the machine should stay idle.
func (m *Machine) nextTrack(ctx context.Context, epoch uint64) (track.Track, string, uint64, bool) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return track.Track{}, "", 0, false
	}
	session := m.nowPlaying.SessionID
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		ticket := m.pipeline.Reserve()
		m.mu.Unlock()
		return next, session, ticket, true
	}
	if !m.autoplay || !track.ValidID(m.nowPlaying.VideoID) {
		m.mu.Unlock()
		slog.Info("nothing left to play, staying idle")
		return track.Track{}, "", 0, false
	}
	seed := recommend.Seed{
		VideoID: m.nowPlaying.VideoID,
		Title:   m.nowPlaying.Title,
		History: m.history.IDs(),
	}
	m.mu.Unlock()

	pick, ok := m.recommender.Next(ctx, seed)
	if !ok {
		slog.Info("no recommendation found, staying idle", "seed", seed.VideoID)
		return track.Track{}, "", 0, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return track.Track{}, "", 0, false
	}
	if pick.ResetHistory {
		m.history.Clear()
	}
	return pick.Track, session, m.pipeline.Reserve(), true
}

// Enqueue appends t to the manual queue and returns its position, starting
// at 1.
func (m *Machine) Enqueue(t track.Track) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, t)
	return len(m.queue)
}

// Skip ends the current playback, which advances as if it ended naturally.
func (m *Machine) Skip(session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nowPlaying.Empty() || m.nowPlaying.SessionID != session {
		return ErrNothingPlaying
	}
	if m.playerGen != 0 {
		m.player.Stop()
	}
	return nil
}

// Stop tears everything down: the pipeline, now playing, the queue, the
// history and the voice connection.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.epoch++
	m.stops++
	m.playerGen = 0
	m.nowPlaying = NowPlaying{}
	m.queue = nil
	m.history.Clear()
	m.pipeline.Teardown()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		if err := m.transport.Destroy(conn); err != nil {
			slog.Warn("failed to destroy voice connection", "guildID", conn.GuildID(), "error", err)
		}
	}
	slog.Info("playback stopped")
}

// SetAutoplay changes the autoplay flag. It takes effect at the next
// track end.
func (m *Machine) SetAutoplay(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoplay = enabled
}

func (m *Machine) Autoplay() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoplay
}

// NowPlaying returns the current track if it belongs to session.
func (m *Machine) NowPlaying(session string) (NowPlaying, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nowPlaying.Empty() || m.nowPlaying.SessionID != session {
		return NowPlaying{}, false
	}
	return m.nowPlaying, true
}

func (m *Machine) Queue() []track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

func (m *Machine) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.IDs()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		NowPlaying: m.nowPlaying,
		Queue:      slices.Clone(m.queue),
		History:    m.history.IDs(),
		Autoplay:   m.autoplay,
		Playing:    m.playerGen != 0,
	}
}
