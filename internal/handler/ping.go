package handler

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/presenters"
)

// commandMatcher matches the slash command called name.
func commandMatcher(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

// componentMatcher matches components whose custom ID is prefix followed
// by a colon and a flow instance ID.
func componentMatcher(prefix string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		name, _, ok := strings.Cut(i.MessageComponentData().CustomID, ":")
		return ok && name == prefix
	}
}

var PingFlow = &Flow{
	ID: CommandPing,
	Root: &Node{
		ID:      CommandPing,
		Matcher: commandMatcher(CommandPing),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
			return s.InteractionRespond(i.Interaction, presenters.Message("Pong!"))
		},
	},
}
