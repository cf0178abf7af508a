package presenters

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/toribot/internal/playback"
	"github.com/glizzus/toribot/internal/track"
	"github.com/glizzus/toribot/internal/util"
)

const (
	// QueueListLimit is how many queued tracks are listed before the rest
	// are summarised.
	QueueListLimit = 10
	// LyricsPageSize is the largest lyrics chunk sent in one message.
	LyricsPageSize = 4000

	embedColor = 0xE8453C
)

// Message is a plain channel message response.
func Message(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

// Ephemeral is a message only the invoking user sees.
func Ephemeral(content string) *discordgo.InteractionResponse {
	resp := Message(content)
	resp.Data.Flags = discordgo.MessageFlagsEphemeral
	return resp
}

var NothingPlayingResponse = Message("Nothing is playing.")

// BuildNowPlayingResponse renders the current track with the queue size
// and autoplay state.
func BuildNowPlayingResponse(np playback.NowPlaying, queueSize int, autoplay bool) *discordgo.InteractionResponse {
	if np.Empty() {
		return NothingPlayingResponse
	}

	artist := np.Artist
	if artist == "" {
		artist = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Title: np.Title,
		URL:   np.VideoURL,
		Color: embedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now playing",
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: artist, Inline: true},
			{Name: "Queue", Value: fmt.Sprintf("%d", queueSize), Inline: true},
			{Name: "Autoplay", Value: onOff(autoplay), Inline: true},
		},
	}
	if np.VideoID != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: "https://i.ytimg.com/vi/" + np.VideoID + "/hqdefault.jpg",
		}
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}
}

// BuildQueueResponse lists the manual queue.
func BuildQueueResponse(queue []track.Track) *discordgo.InteractionResponse {
	if len(queue) == 0 {
		return Message("The queue is empty.")
	}

	shown, rest := util.Truncate(queue, QueueListLimit)

	var b strings.Builder
	b.WriteString("**Up next**\n")
	for i, t := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	if rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}

	return Message(strings.TrimRight(b.String(), "\n"))
}

// StartedMessage confirms a play request.
func StartedMessage(title string, autoplay bool) string {
	msg := fmt.Sprintf("Now playing **%s**.", title)
	if autoplay {
		msg += "\nWhen the queue runs out a recommended song plays next."
	}
	return msg
}

// EnqueuedMessage confirms a track was queued at position.
func EnqueuedMessage(title string, position int) string {
	return fmt.Sprintf("Added **%s** to the queue at position %d.", title, position)
}

func AutoplayMessage(enabled bool) string {
	return "Autoplay is now " + onOff(enabled) + "."
}

// LyricsPages splits lyrics into messages of at most LyricsPageSize
// characters, breaking at line ends where possible. The first page is
// headed with the track title.
func LyricsPages(title, lyrics string) []string {
	text := fmt.Sprintf("**%s**\n\n%s", title, strings.TrimSpace(lyrics))

	var pages []string
	for text != "" {
		if utf8.RuneCountInString(text) <= LyricsPageSize {
			pages = append(pages, text)
			break
		}

		cut := byteOffset(text, LyricsPageSize)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl
		}
		pages = append(pages, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	return pages
}

// ComponentIDLyricsNext prefixes the custom ID of the lyrics "Next page"
// button. The flow instance ID follows a colon.
const ComponentIDLyricsNext = "lyrics_next"

// LyricsPageComponents returns the button that shows the page after page,
// or no components on the last page.
func LyricsPageComponents(instanceID string, page, total int) []discordgo.MessageComponent {
	if page+1 >= total {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fmt.Sprintf("Next page (%d/%d)", page+2, total),
					Style:    discordgo.SecondaryButton,
					CustomID: ComponentIDLyricsNext + ":" + instanceID,
				},
			},
		},
	}
}

// BuildLyricsPageResponse replaces the lyrics message with page.
func BuildLyricsPageResponse(content, instanceID string, page, total int) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: LyricsPageComponents(instanceID, page, total),
		},
	}
}

// byteOffset returns the byte index just past the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
