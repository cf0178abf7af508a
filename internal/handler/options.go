package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/util"
)

type commandOption = discordgo.ApplicationCommandInteractionDataOption

// singleOption returns the only option of a one-argument command, checking
// its name and type.
func singleOption(
	options []*commandOption,
	name string,
	optionType discordgo.ApplicationCommandOptionType,
) (*commandOption, error) {
	byName := make(map[string]*commandOption, len(options))
	for _, option := range options {
		byName[option.Name] = option
	}

	option, err := util.GetOne(byName)
	if err != nil {
		return nil, fmt.Errorf("expected exactly one %q option: %w", name, err)
	}
	if option.Name != name {
		return nil, fmt.Errorf("unexpected option %q", option.Name)
	}
	if option.Type != optionType {
		return nil, fmt.Errorf("invalid type for %s option", name)
	}
	return option, nil
}

// QueryFromOptions extracts the search query of play and enqueue.
func QueryFromOptions(options []*commandOption) (string, error) {
	option, err := singleOption(options, OptionQuery, discordgo.ApplicationCommandOptionString)
	if err != nil {
		return "", err
	}

	query := strings.TrimSpace(option.StringValue())
	if query == "" {
		return "", &UserError{Message: "Tell me what to play."}
	}
	return query, nil
}

// EnabledFromOptions extracts the flag of autoplay.
func EnabledFromOptions(options []*commandOption) (bool, error) {
	option, err := singleOption(options, OptionEnabled, discordgo.ApplicationCommandOptionBoolean)
	if err != nil {
		return false, err
	}
	return option.BoolValue(), nil
}
