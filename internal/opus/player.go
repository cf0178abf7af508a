package opus

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/toribot/internal/generator"
)

var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// DefaultSendTimeout bounds how long a single frame may wait for the sink.
const DefaultSendTimeout = time.Minute

// Event reports the end of a playback. Exactly one Event is emitted for
// every generation returned by Play.
type Event struct {
	Generation uint64
	// Err is set when the source or the sink failed. A source that simply
	// ran out of frames ends with a nil Err.
	Err error
	// Stopped is set when the playback ended because of Stop or a newer Play.
	Stopped bool
}

type playing struct {
	generation uint64
	source     io.ReadCloser
	stop       chan struct{}
	stopOnce   sync.Once
}

func (p *playing) halt() {
	p.stopOnce.Do(func() {
		close(p.stop)
		// Unblocks a ReadFrame waiting on the source.
		_ = p.source.Close()
	})
}

// Player plays one frame source at a time into a sink channel.
type Player struct {
	mu      sync.Mutex
	sink    chan<- []byte
	current *playing

	generations generator.Sequence
	events      chan Event
	newSource   func(io.Reader) FrameSource
	sendTimeout time.Duration
}

// NewPlayer returns a Player that decodes sources with newSource. A nil
// newSource reads Ogg/Opus; a zero sendTimeout uses DefaultSendTimeout.
func NewPlayer(newSource func(io.Reader) FrameSource, sendTimeout time.Duration) *Player {
	if newSource == nil {
		newSource = func(r io.Reader) FrameSource { return NewOggReader(r) }
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Player{
		events:      make(chan Event, 16),
		newSource:   newSource,
		sendTimeout: sendTimeout,
	}
}

// Events delivers one Event per finished playback. It must be drained.
func (p *Player) Events() <-chan Event {
	return p.events
}

// SetSink routes subsequent frames to sink.
func (p *Player) SetSink(sink chan<- []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// Play starts playing source, stopping whatever was playing before, and
// returns the generation that identifies this playback in Events. The
// player closes source when the playback ends.
func (p *Player) Play(source io.ReadCloser) uint64 {
	gen, _ := p.generations.Next()
	pb := &playing{
		generation: gen,
		source:     source,
		stop:       make(chan struct{}),
	}

	p.mu.Lock()
	previous := p.current
	p.current = pb
	p.mu.Unlock()

	if previous != nil {
		previous.halt()
	}

	go p.run(pb)
	return gen
}

// Stop ends the current playback, if any. It does not wait for the
// playback goroutine to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.mu.Unlock()

	if pb != nil {
		pb.halt()
	}
}

// Idle reports whether nothing is playing.
func (p *Player) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil
}

func (p *Player) run(pb *playing) {
	err := p.stream(pb, p.newSource(pb.source))
	_ = pb.source.Close()

	stopped := false
	select {
	case <-pb.stop:
		stopped = true
		err = nil
	default:
	}

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	p.mu.Unlock()

	if err != nil {
		slog.Warn("playback ended with error", "generation", pb.generation, "error", err)
	}
	p.events <- Event{Generation: pb.generation, Err: err, Stopped: stopped}
}

func (p *Player) stream(pb *playing, src FrameSource) error {
	timer := time.NewTimer(p.sendTimeout)
	defer timer.Stop()

	for {
		frame, err := src.ReadFrame()
		if err != nil {
			if isEndOfStream(err) {
				return nil
			}
			return err
		}

		p.mu.Lock()
		sink := p.sink
		p.mu.Unlock()

		timer.Reset(p.sendTimeout)
		select {
		case sink <- frame:
		case <-pb.stop:
			return nil
		case <-timer.C:
			return ErrVoiceConnClosed
		}
	}
}
