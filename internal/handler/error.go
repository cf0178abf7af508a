package handler

import (
	"errors"

	"github.com/glizzus/toribot/internal/lyrics"
	"github.com/glizzus/toribot/internal/playback"
	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/voice"
)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

const genericFailureMessage = "Something went wrong. Please try again."

// UserMessage returns the text shown to a user for err.
func UserMessage(err error) string {
	var userErr *UserError
	switch {
	case errors.As(err, &userErr):
		return userErr.Message
	case errors.Is(err, playback.ErrNothingPlaying):
		return "Nothing is playing."
	case errors.Is(err, voice.ErrNotInVoice):
		return "Join a voice channel first."
	case errors.Is(err, playback.ErrVoiceTimeout):
		return "Could not connect to the voice channel."
	case errors.Is(err, search.ErrNoResults):
		return "No song found for that search."
	case errors.Is(err, lyrics.ErrNotFound):
		return "No lyrics found for this song."
	case errors.Is(err, playback.ErrSuperseded):
		return "Another song was started first."
	default:
		return genericFailureMessage
	}
}
