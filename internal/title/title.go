// Package title turns decorated video titles into artist/title metadata.
//
// Parsing is a best-effort heuristic. Callers should treat the artist as
// optional metadata, not a verified fact.
package title

import (
	"regexp"
	"strings"
)

var (
	bracketed = []*regexp.Regexp{
		regexp.MustCompile(`\[.*?\]`),
		regexp.MustCompile(`\(.*?\)`),
		regexp.MustCompile(`【.*?】`),
	}

	// Longer alternatives come first so "Lyrics" is not left as "s".
	promoTokens = regexp.MustCompile(`(?i)\b(?:M/V|MV|Official|Video|Audio|Lyrics|Lyric|HD|4K)\b`)

	trailingSegments = []*regexp.Regexp{
		regexp.MustCompile(`ㅣ.*$`),
		regexp.MustCompile(`｜.*$`),
		regexp.MustCompile(`\|.*$`),
		regexp.MustCompile(`#.*$`),
		regexp.MustCompile(`➡.*$`),
	}

	repeatedHyphens = regexp.MustCompile(`-{2,}`)
	whitespace      = regexp.MustCompile(`\s+`)

	splitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`),
		regexp.MustCompile(`^(.+?)\s*–\s*(.+)$`),
	}
)

// Info is the result of Parse.
type Info struct {
	Artist string
	Title  string
}

// Query joins artist and title for search-style lookups.
func (i Info) Query() string {
	if i.Artist == "" {
		return i.Title
	}
	return i.Artist + " " + i.Title
}

// Clean strips bracketed annotations, promotional tokens and trailing
// decorative segments from a raw video title.
func Clean(raw string) string {
	s := raw
	for _, re := range bracketed {
		s = re.ReplaceAllString(s, "")
	}
	s = promoTokens.ReplaceAllString(s, "")
	for _, re := range trailingSegments {
		s = re.ReplaceAllString(s, "")
	}
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Parse cleans raw and splits it at the first hyphen, or failing that the
// first en-dash. Without a separator the artist is empty.
func Parse(raw string) Info {
	cleaned := Clean(raw)
	for _, re := range splitPatterns {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			return Info{
				Artist: strings.TrimSpace(m[1]),
				Title:  strings.TrimSpace(m[2]),
			}
		}
	}
	return Info{Title: cleaned}
}
