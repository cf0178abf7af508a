// Package voice joins, feeds and leaves Discord voice channels.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrNotReady is returned when a connection does not become ready in time.
	ErrNotReady = errors.New("voice connection not ready")
	// ErrNotInVoice is returned when a user is not in any voice channel.
	ErrNotInVoice = errors.New("user is not in a voice channel")
	// ErrForeignConnection is returned when a Connection was not created by
	// the Transport it is passed to.
	ErrForeignConnection = errors.New("connection does not belong to this transport")
)

const readyPollInterval = 50 * time.Millisecond

// Connection is a voice session in one channel.
type Connection interface {
	GuildID() string
	ChannelID() string
	// Ready reports whether the connection can carry audio.
	Ready() bool
}

// SinkSetter receives the channel audio frames should be sent to.
type SinkSetter interface {
	SetSink(chan<- []byte)
}

// Joiner is the part of *discordgo.Session used to join channels.
type Joiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// Transport connects to voice channels through a discordgo session.
type Transport struct {
	session Joiner
}

func NewTransport(session Joiner) *Transport {
	return &Transport{session: session}
}

type connection struct {
	guildID   string
	channelID string

	joined chan struct{}
	vc     *discordgo.VoiceConnection
	err    error

	destroyOnce sync.Once
}

func (c *connection) GuildID() string   { return c.guildID }
func (c *connection) ChannelID() string { return c.channelID }

func (c *connection) Ready() bool {
	select {
	case <-c.joined:
	default:
		return false
	}
	if c.err != nil || c.vc == nil {
		return false
	}
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

// Join starts joining channelID in guildID and returns without waiting for
// the handshake to finish. Use AwaitReady to wait for it.
func (t *Transport) Join(guildID, channelID string) (Connection, error) {
	if guildID == "" || channelID == "" {
		return nil, fmt.Errorf("joining voice requires a guild and a channel")
	}

	c := &connection{
		guildID:   guildID,
		channelID: channelID,
		joined:    make(chan struct{}),
	}
	go func() {
		defer close(c.joined)
		// The bot deafens itself; it never listens.
		c.vc, c.err = t.session.ChannelVoiceJoin(guildID, channelID, false, true)
		if c.err != nil {
			slog.Warn("failed to join voice channel", "guildID", guildID, "channelID", channelID, "error", c.err)
		}
	}()
	return c, nil
}

// AwaitReady blocks until conn is ready, timeout elapses or ctx is done.
func (t *Transport) AwaitReady(ctx context.Context, conn Connection, timeout time.Duration) error {
	c, ok := conn.(*connection)
	if !ok {
		return ErrForeignConnection
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-c.joined:
	case <-deadline.C:
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.err != nil {
		return fmt.Errorf("unable to join the voice channel: %w", c.err)
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for !c.Ready() {
		select {
		case <-ticker.C:
		case <-deadline.C:
			return ErrNotReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe routes the frames of sink's producer into conn.
func (t *Transport) Subscribe(conn Connection, sink SinkSetter) error {
	c, ok := conn.(*connection)
	if !ok {
		return ErrForeignConnection
	}
	if !c.Ready() {
		return ErrNotReady
	}

	if err := c.vc.Speaking(true); err != nil {
		return fmt.Errorf("error setting speaking state to 'true': %w", err)
	}
	sink.SetSink(c.vc.OpusSend)
	return nil
}

// Destroy leaves the channel. A join still in progress is torn down once
// it completes.
func (t *Transport) Destroy(conn Connection) error {
	c, ok := conn.(*connection)
	if !ok {
		return ErrForeignConnection
	}

	select {
	case <-c.joined:
		return c.destroy()
	default:
		go func() {
			<-c.joined
			if err := c.destroy(); err != nil {
				slog.Error("failed to leave voice channel after late join", "guildID", c.guildID, "error", err)
			}
		}()
		return nil
	}
}

func (c *connection) destroy() error {
	var err error
	c.destroyOnce.Do(func() {
		if c.vc == nil {
			return
		}
		if serr := c.vc.Speaking(false); serr != nil {
			slog.Warn("failed to stop speaking", "guildID", c.guildID, "error", serr)
		}
		if derr := c.vc.Disconnect(); derr != nil {
			err = fmt.Errorf("failed to disconnect: %w", derr)
		}
	})
	return err
}

// VoiceStater is the part of *discordgo.State used to find users.
type VoiceStater interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

// UserVoiceChannel returns the voice channel userID is connected to.
func UserVoiceChannel(state VoiceStater, guildID, userID string) (string, error) {
	vs, err := state.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", ErrNotInVoice
	}
	return vs.ChannelID, nil
}
