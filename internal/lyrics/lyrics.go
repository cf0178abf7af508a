// Package lyrics looks up song lyrics on Genius.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/glizzus/toribot/internal/cache"
	"github.com/glizzus/toribot/internal/title"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://genius.com"
	// DefaultCacheTTL is how long found lyrics are reused.
	DefaultCacheTTL = 24 * time.Hour

	minLyricsLength = 50
	userAgent       = "Mozilla/5.0 (compatible; toribot)"
)

var ErrNotFound = errors.New("lyrics not found")

var containerSelectors = []string{
	`div[data-lyrics-container="true"]`,
	`div[class^="Lyrics__Container"]`,
	`div.lyrics`,
}

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client searches Genius and scrapes lyrics from song pages.
type Client struct {
	http    HTTPClient
	baseURL string
	limiter *rate.Limiter
	cache   cache.Cache
	ttl     time.Duration
}

// NewClient returns a Client. c may be nil to disable caching.
func NewClient(httpClient HTTPClient, baseURL string, c cache.Cache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		cache:   c,
		ttl:     DefaultCacheTTL,
	}
}

// Queries lists the searches tried for a video title, most specific first.
func Queries(rawTitle string) []string {
	info := title.Parse(rawTitle)
	candidates := []string{info.Query(), info.Title, title.Clean(rawTitle)}

	var out []string
	seen := make(map[string]struct{})
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// Lookup finds lyrics for a video title, trying artist and title, the
// title alone and finally the whole cleaned title.
func (c *Client) Lookup(ctx context.Context, rawTitle string) (string, error) {
	key := "lyrics:" + strings.ToLower(title.Clean(rawTitle))
	if c.cache != nil {
		if b, err := c.cache.Get(ctx, key); err == nil {
			return string(b), nil
		}
	}

	for _, q := range Queries(rawTitle) {
		text, err := c.find(ctx, q)
		if errors.Is(err, ErrNotFound) {
			slog.Debug("no lyrics for query", "query", q)
			continue
		}
		if err != nil {
			slog.Warn("lyrics lookup failed", "query", q, "error", err)
			continue
		}

		if c.cache != nil {
			if err := c.cache.Set(ctx, key, []byte(text), c.ttl); err != nil {
				slog.Warn("failed to cache lyrics", "key", key, "error", err)
			}
		}
		return text, nil
	}
	return "", ErrNotFound
}

func (c *Client) find(ctx context.Context, query string) (string, error) {
	songURL, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return c.Fetch(ctx, songURL)
}

type searchResponse struct {
	Response struct {
		Sections []struct {
			Type string `json:"type"`
			Hits []struct {
				Result struct {
					URL string `json:"url"`
				} `json:"result"`
			} `json:"hits"`
		} `json:"sections"`
	} `json:"response"`
}

// Search returns the page URL of the best song match for query.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	endpoint := c.baseURL + "/api/search/multi?q=" + url.QueryEscape(query)
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode genius search response: %w", err)
	}

	for _, section := range body.Response.Sections {
		if section.Type != "song" || len(section.Hits) == 0 {
			continue
		}
		if u := section.Hits[0].Result.URL; u != "" {
			return u, nil
		}
	}
	return "", ErrNotFound
}

// Fetch scrapes the lyrics text from a song page.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse lyrics page: %w", err)
	}
	return Extract(doc)
}

// Extract pulls lyrics out of a parsed song page.
func Extract(doc *goquery.Document) (string, error) {
	for _, sel := range containerSelectors {
		containers := doc.Find(sel)
		if containers.Length() == 0 {
			continue
		}

		var parts []string
		containers.Each(func(_ int, s *goquery.Selection) {
			s.Find("br").ReplaceWithHtml("\n")
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})

		text := strings.TrimSpace(strings.Join(parts, "\n\n"))
		if len(text) > minLyricsLength {
			return text, nil
		}
	}
	return "", ErrNotFound
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unexpected status from %s: %s", target, resp.Status)
	}
	return resp, nil
}
