package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/playback"
	"github.com/glizzus/toribot/internal/presenters"
	"github.com/glizzus/toribot/internal/title"
	"github.com/glizzus/toribot/internal/track"
	"github.com/glizzus/toribot/internal/voice"
)

// commandTimeout bounds the work a single command may do, including
// joining voice and starting the stream.
const commandTimeout = 2 * time.Minute

// Machine is the playback state machine as commands see it.
type Machine interface {
	Play(ctx context.Context, req playback.Request) error
	Enqueue(t track.Track) int
	Skip(session string) error
	Stop()
	SetAutoplay(enabled bool)
	NowPlaying(session string) (playback.NowPlaying, bool)
	Snapshot() playback.Snapshot
}

// Resolver turns a play query into a track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (track.Track, error)
}

// LyricsFinder looks up lyrics for a video title.
type LyricsFinder interface {
	Lookup(ctx context.Context, rawTitle string) (string, error)
}

// Music implements the playback commands.
type Music struct {
	machine  Machine
	resolver Resolver
	lyrics   LyricsFinder
	voice    voice.VoiceStater
}

func NewMusic(machine Machine, resolver Resolver, lyrics LyricsFinder, vs voice.VoiceStater) *Music {
	return &Music{
		machine:  machine,
		resolver: resolver,
		lyrics:   lyrics,
		voice:    vs,
	}
}

// Flows returns a flow per music command.
func (m *Music) Flows() []*Flow {
	handlers := map[string]func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error{
		CommandPlay:       m.play,
		CommandEnqueue:    m.enqueue,
		CommandStop:       m.stop,
		CommandSkip:       m.skip,
		CommandQueue:      m.queue,
		CommandNowPlaying: m.nowPlaying,
		CommandAutoplay:   m.autoplay,
	}

	flows := make([]*Flow, 0, len(handlers)+1)
	for name, h := range handlers {
		flows = append(flows, &Flow{
			ID: name,
			Root: &Node{
				ID:      name,
				Matcher: commandMatcher(name),
				Handler: h,
			},
		})
	}
	return append(flows, m.lyricsFlow())
}

// lyricsFlow shows the first page of lyrics and then one more page per
// press of the "Next page" button.
func (m *Music) lyricsFlow() *Flow {
	next := &Node{
		ID:      presenters.ComponentIDLyricsNext,
		Matcher: componentMatcher(presenters.ComponentIDLyricsNext),
		Handler: m.nextLyricsPage,
	}
	next.Next = []*Node{next}

	return &Flow{
		ID: CommandLyrics,
		Root: &Node{
			ID:      CommandLyrics,
			Matcher: commandMatcher(CommandLyrics),
			Handler: m.showLyrics,
			Next:    []*Node{next},
		},
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// editReply replaces the text of the original response.
func editReply(s DiscordSession, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		slog.Error("Failed to edit response", "guildID", i.GuildID, "error", err)
	}
}

func (m *Music) play(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	query, err := QueryFromOptions(i.ApplicationCommandData().Options)
	if err != nil {
		return err
	}
	channelID, err := voice.UserVoiceChannel(m.voice, i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}

	if err := s.InteractionRespond(i.Interaction, presenters.Message("Fetching...")); err != nil {
		return fmt.Errorf("failed to acknowledge play: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	t, err := m.start(ctx, query, i.GuildID, channelID)
	if err != nil {
		editReply(s, i, UserMessage(err))
		return &answeredError{err: err}
	}
	editReply(s, i, presenters.StartedMessage(t.Title, m.machine.Snapshot().Autoplay))
	return nil
}

func (m *Music) start(ctx context.Context, query, guildID, channelID string) (track.Track, error) {
	t, err := m.resolver.Resolve(ctx, query)
	if err != nil {
		return track.Track{}, fmt.Errorf("failed to resolve %q: %w", query, err)
	}

	err = m.machine.Play(ctx, playback.Request{
		Track:     t,
		SessionID: guildID,
		ChannelID: channelID,
	})
	if err != nil {
		return track.Track{}, err
	}
	return t, nil
}

// enqueue queues a track, or plays it right away when nothing is playing
// in this guild.
func (m *Music) enqueue(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	query, err := QueryFromOptions(i.ApplicationCommandData().Options)
	if err != nil {
		return err
	}

	_, playing := m.machine.NowPlaying(i.GuildID)
	var channelID string
	if !playing {
		channelID, err = voice.UserVoiceChannel(m.voice, i.GuildID, interactionUserID(i))
		if err != nil {
			return err
		}
	}

	if err := s.InteractionRespond(i.Interaction, presenters.Message("Fetching...")); err != nil {
		return fmt.Errorf("failed to acknowledge enqueue: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if !playing {
		t, err := m.start(ctx, query, i.GuildID, channelID)
		if err != nil {
			editReply(s, i, UserMessage(err))
			return &answeredError{err: err}
		}
		editReply(s, i, presenters.StartedMessage(t.Title, m.machine.Snapshot().Autoplay))
		return nil
	}

	t, err := m.resolver.Resolve(ctx, query)
	if err != nil {
		editReply(s, i, UserMessage(err))
		return &answeredError{err: err}
	}
	position := m.machine.Enqueue(t)
	editReply(s, i, presenters.EnqueuedMessage(t.Title, position))
	return nil
}

func (m *Music) stop(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	m.machine.Stop()
	return s.InteractionRespond(i.Interaction, presenters.Message("Stopped playback."))
}

func (m *Music) skip(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	if err := m.machine.Skip(i.GuildID); err != nil {
		return err
	}
	return s.InteractionRespond(i.Interaction, presenters.Message("Skipping to the next song."))
}

func (m *Music) queue(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	return s.InteractionRespond(i.Interaction, presenters.BuildQueueResponse(m.machine.Snapshot().Queue))
}

func (m *Music) nowPlaying(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	np, ok := m.machine.NowPlaying(i.GuildID)
	if !ok {
		return playback.ErrNothingPlaying
	}
	snap := m.machine.Snapshot()
	return s.InteractionRespond(i.Interaction, presenters.BuildNowPlayingResponse(np, len(snap.Queue), snap.Autoplay))
}

const (
	lyricsPagesKey = "pages"
	lyricsPageKey  = "page"
)

func (m *Music) showLyrics(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
	np, ok := m.machine.NowPlaying(i.GuildID)
	if !ok {
		return playback.ErrNothingPlaying
	}

	if err := s.InteractionRespond(i.Interaction, presenters.Message("Searching for lyrics...")); err != nil {
		return fmt.Errorf("failed to acknowledge lyrics: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	text, err := m.lyrics.Lookup(lookupCtx, np.Title)
	if err != nil {
		editReply(s, i, UserMessage(err))
		return &answeredError{err: err}
	}

	pages := presenters.LyricsPages(title.Clean(np.Title), text)
	if len(pages) == 1 {
		ctx.Finish()
		editReply(s, i, pages[0])
		return nil
	}

	ctx.State[lyricsPagesKey] = pages
	ctx.State[lyricsPageKey] = 0
	components := presenters.LyricsPageComponents(ctx.InstanceID, 0, len(pages))
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &pages[0],
		Components: &components,
	})
	if err != nil {
		return &answeredError{err: fmt.Errorf("failed to send lyrics page: %w", err)}
	}
	return nil
}

func (m *Music) nextLyricsPage(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
	pages, _ := ctx.State[lyricsPagesKey].([]string)
	page, _ := ctx.State[lyricsPageKey].(int)
	page++
	if page >= len(pages) {
		ctx.Finish()
		return nil
	}

	ctx.State[lyricsPageKey] = page
	if page == len(pages)-1 {
		ctx.Finish()
	}
	return s.InteractionRespond(i.Interaction, presenters.BuildLyricsPageResponse(pages[page], ctx.InstanceID, page, len(pages)))
}

func (m *Music) autoplay(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	enabled, err := EnabledFromOptions(i.ApplicationCommandData().Options)
	if err != nil {
		return err
	}
	m.machine.SetAutoplay(enabled)
	return s.InteractionRespond(i.Interaction, presenters.Message(presenters.AutoplayMessage(enabled)))
}
