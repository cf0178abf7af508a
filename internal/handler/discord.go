package handler

import (
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/presenters"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// DiscordSession is the part of *discordgo.Session that handlers use to
// answer interactions.
type DiscordSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

// Router dispatches an interaction.
type Router interface {
	Router(s DiscordSession, i *discordgo.InteractionCreate) error
}

// MakeInteractionCreateHandler routes interactions and reports handler
// errors that have not been answered yet.
func MakeInteractionCreateHandler(router Router) InteractionCreateHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		HandleInteraction(s, router, i)
	}
}

// HandleInteraction is the body of the interaction handler.
func HandleInteraction(s DiscordSession, router Router, i *discordgo.InteractionCreate) {
	err := router.Router(s, i)
	if err == nil {
		return
	}

	var answered *answeredError
	if errors.As(err, &answered) {
		slog.Warn("Command failed", "guildID", i.GuildID, "error", answered.err)
		return
	}

	slog.Warn("Command failed", "guildID", i.GuildID, "error", err)
	if err := s.InteractionRespond(i.Interaction, presenters.Ephemeral(UserMessage(err))); err != nil {
		slog.Error("Failed to respond with error", "error", err)
	}
}

// answeredError marks a failure the user has already been told about.
type answeredError struct {
	err error
}

func (e *answeredError) Error() string { return e.err.Error() }
func (e *answeredError) Unwrap() error { return e.err }

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
}

func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	s.AddHandler(handlers.Ready)
	s.AddHandler(handlers.InteractionCreate)

	return s, nil
}
