package handler_test

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/playback"
	"github.com/glizzus/toribot/internal/track"
)

type fakeSession struct {
	mu         sync.Mutex
	responses  []*discordgo.InteractionResponse
	edits      []string
	components [][]discordgo.MessageComponent
}

func (s *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, *edit.Content)
	if edit.Components != nil {
		s.components = append(s.components, *edit.Components)
	}
	return &discordgo.Message{}, nil
}

// contents returns the text of every initial response.
func (s *fakeSession) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.responses {
		out = append(out, r.Data.Content)
	}
	return out
}

type fakeMachine struct {
	nowPlaying playback.NowPlaying
	queue      []track.Track
	autoplay   bool
	playErr    error
	skipErr    error

	played  []playback.Request
	stopped int
	skipped []string
}

func (m *fakeMachine) Play(_ context.Context, req playback.Request) error {
	if m.playErr != nil {
		return m.playErr
	}
	m.played = append(m.played, req)
	m.nowPlaying = playback.NowPlaying{
		Title:     req.Track.Title,
		VideoID:   req.Track.VideoID,
		VideoURL:  req.Track.URL,
		SessionID: req.SessionID,
	}
	return nil
}

func (m *fakeMachine) Enqueue(t track.Track) int {
	m.queue = append(m.queue, t)
	return len(m.queue)
}

func (m *fakeMachine) Skip(session string) error {
	if m.nowPlaying.Empty() || m.nowPlaying.SessionID != session {
		return playback.ErrNothingPlaying
	}
	m.skipped = append(m.skipped, session)
	return m.skipErr
}

func (m *fakeMachine) Stop() {
	m.stopped++
	m.nowPlaying = playback.NowPlaying{}
	m.queue = nil
}

func (m *fakeMachine) SetAutoplay(enabled bool) { m.autoplay = enabled }

func (m *fakeMachine) NowPlaying(session string) (playback.NowPlaying, bool) {
	if m.nowPlaying.Empty() || m.nowPlaying.SessionID != session {
		return playback.NowPlaying{}, false
	}
	return m.nowPlaying, true
}

func (m *fakeMachine) Snapshot() playback.Snapshot {
	return playback.Snapshot{
		NowPlaying: m.nowPlaying,
		Queue:      m.queue,
		Autoplay:   m.autoplay,
		Playing:    !m.nowPlaying.Empty(),
	}
}

type fakeResolver struct {
	tracks  map[string]track.Track
	queries []string
}

func (r *fakeResolver) Resolve(_ context.Context, query string) (track.Track, error) {
	r.queries = append(r.queries, query)
	t, ok := r.tracks[query]
	if !ok {
		return track.Track{}, errNoSong
	}
	return t, nil
}

type fakeLyrics struct {
	text string
	err  error
}

func (l *fakeLyrics) Lookup(context.Context, string) (string, error) {
	return l.text, l.err
}

type fakeVoiceStates map[string]string

func (v fakeVoiceStates) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	channelID, ok := v[guildID+"/"+userID]
	if !ok {
		return nil, discordgo.ErrStateNotFound
	}
	return &discordgo.VoiceState{GuildID: guildID, UserID: userID, ChannelID: channelID}, nil
}

var errNoSong = errors.New("no song")
