package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandPlay       = "play"
	CommandEnqueue    = "enqueue"
	CommandStop       = "stop"
	CommandSkip       = "skip"
	CommandQueue      = "queue"
	CommandNowPlaying = "nowplaying"
	CommandLyrics     = "lyrics"
	CommandAutoplay   = "autoplay"
	CommandPing       = "ping"

	OptionQuery   = "query"
	OptionEnabled = "enabled"
)

var queryOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        OptionQuery,
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "A song title or a YouTube URL.",
		Required:    true,
	},
}

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        CommandPlay,
		Description: "Play a song now, replacing the current one",
		Options:     queryOptions,
	},
	{
		Name:        CommandEnqueue,
		Description: "Add a song to the queue",
		Options:     queryOptions,
	},
	{
		Name:        CommandStop,
		Description: "Stop playback, clear the queue and leave the voice channel",
	},
	{
		Name:        CommandSkip,
		Description: "Skip to the next song",
	},
	{
		Name:        CommandQueue,
		Description: "Show the queue",
	},
	{
		Name:        CommandNowPlaying,
		Description: "Show the song that is playing",
	},
	{
		Name:        CommandLyrics,
		Description: "Show lyrics for the song that is playing",
	},
	{
		Name:        CommandAutoplay,
		Description: "Turn recommendations after the last song on or off",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionEnabled,
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Description: "Whether autoplay is on.",
				Required:    true,
			},
		},
	},
	{
		Name:        CommandPing,
		Description: "Check that the bot is alive",
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
