package playback_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/glizzus/toribot/internal/opus"
	"github.com/glizzus/toribot/internal/recommend"
	"github.com/glizzus/toribot/internal/voice"
)

type fakePipeline struct {
	mu        sync.Mutex
	urls      []string
	teardowns int
	releases  int
	tickets   uint64
	err       error
	gates     map[string]chan struct{}
	// entered receives the url of every AcquireReserved call, dropping them when full.
	entered chan string
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{gates: make(map[string]chan struct{}), entered: make(chan string, 64)}
}

func (p *fakePipeline) block(url string) func() {
	gate := make(chan struct{})
	p.mu.Lock()
	p.gates[url] = gate
	p.mu.Unlock()
	return func() { close(gate) }
}

func (p *fakePipeline) Reserve() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets++
	return p.tickets
}

func (p *fakePipeline) AcquireReserved(ctx context.Context, ticket uint64, url string) (io.ReadCloser, error) {
	p.mu.Lock()
	gate := p.gates[url]
	err := p.err
	p.mu.Unlock()

	select {
	case p.entered <- url:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
	return io.NopCloser(strings.NewReader(url)), nil
}

func (p *fakePipeline) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardowns++
}

func (p *fakePipeline) Release(io.Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
}

func (p *fakePipeline) acquired() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

func (p *fakePipeline) teardownCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.teardowns
}

// fakePlayer never reads its sources. Tests end playbacks explicitly with
// finish, or through Stop.
type fakePlayer struct {
	mu      sync.Mutex
	gen     uint64
	current uint64
	stops   int
	events  chan opus.Event
	sink    chan<- []byte
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan opus.Event, 64)}
}

func (p *fakePlayer) Play(source io.ReadCloser) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != 0 {
		p.events <- opus.Event{Generation: p.current, Stopped: true}
	}
	p.gen++
	p.current = p.gen
	return p.gen
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.current != 0 {
		p.events <- opus.Event{Generation: p.current, Stopped: true}
		p.current = 0
	}
}

func (p *fakePlayer) Events() <-chan opus.Event { return p.events }

func (p *fakePlayer) SetSink(sink chan<- []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// finish ends the current playback naturally, or with err.
func (p *fakePlayer) finish(err error) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	gen := p.current
	p.current = 0
	p.events <- opus.Event{Generation: gen, Err: err}
	return gen
}

// emit sends an arbitrary event, such as one for an old generation.
func (p *fakePlayer) emit(ev opus.Event) {
	p.events <- ev
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

type fakeConn struct {
	guild, channel string
	mu             sync.Mutex
	ready          bool
}

func (c *fakeConn) GuildID() string   { return c.guild }
func (c *fakeConn) ChannelID() string { return c.channel }
func (c *fakeConn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

type fakeTransport struct {
	mu         sync.Mutex
	joins      int
	destroys   int
	subscribed int
	neverReady bool
	// readyGate, when set, holds AwaitReady until closed. awaiting is
	// signalled as each AwaitReady starts waiting.
	readyGate chan struct{}
	awaiting  chan struct{}
}

func (t *fakeTransport) Join(guildID, channelID string) (voice.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joins++
	return &fakeConn{guild: guildID, channel: channelID}, nil
}

func (t *fakeTransport) AwaitReady(ctx context.Context, conn voice.Connection, timeout time.Duration) error {
	t.mu.Lock()
	neverReady, gate, awaiting := t.neverReady, t.readyGate, t.awaiting
	t.mu.Unlock()
	if awaiting != nil {
		select {
		case awaiting <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if neverReady {
		return voice.ErrNotReady
	}
	c := conn.(*fakeConn)
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

func (t *fakeTransport) Subscribe(conn voice.Connection, sink voice.SinkSetter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribed++
	sink.SetSink(make(chan []byte))
	return nil
}

func (t *fakeTransport) Destroy(conn voice.Connection) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.destroys++
	c := conn.(*fakeConn)
	c.mu.Lock()
	c.ready = false
	c.mu.Unlock()
	return nil
}

func (t *fakeTransport) counts() (joins, destroys, subscribed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.joins, t.destroys, t.subscribed
}

type fakeRecommender struct {
	mu      sync.Mutex
	picks   []recommend.Pick
	seeds   []recommend.Seed
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRecommender(picks ...recommend.Pick) *fakeRecommender {
	return &fakeRecommender{picks: picks, entered: make(chan struct{}, 64)}
}

func (r *fakeRecommender) Next(ctx context.Context, seed recommend.Seed) (recommend.Pick, bool) {
	r.mu.Lock()
	r.seeds = append(r.seeds, seed)
	gate := r.gate
	r.mu.Unlock()

	select {
	case r.entered <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.picks) == 0 {
		return recommend.Pick{}, false
	}
	pick := r.picks[0]
	r.picks = r.picks[1:]
	return pick, true
}

func (r *fakeRecommender) seedList() []recommend.Seed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recommend.Seed(nil), r.seeds...)
}

var errBoom = errors.New("boom")
