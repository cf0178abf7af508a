package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/glizzus/toribot/internal/config"
	"github.com/glizzus/toribot/internal/opus"
	"github.com/glizzus/toribot/internal/pipeline"
	"github.com/glizzus/toribot/internal/recommend"
	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/title"
	"github.com/glizzus/toribot/internal/track"
	"github.com/urfave/cli/v2"
)

var stdinReader = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

// argOrPrompt returns the joined arguments, asking for them when none
// were given.
func argOrPrompt(c *cli.Context, label string) string {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " ")
	}
	return prompt(label)
}

func newProvider(c *cli.Context) (search.Provider, error) {
	cfg, err := config.NewYouTubeConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return search.NewKeyless(), nil
	}
	return search.NewYouTube(c.Context, cfg.APIKey, cfg.RequestsPerSecond)
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "toribot-cli",
		Description: "A development CLI tool for testing toribot without Discord",
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Show how a video title is cleaned and split",
				ArgsUsage: "<title>",
				Action: func(c *cli.Context) error {
					raw := argOrPrompt(c, "Enter video title")
					info := title.Parse(raw)

					fmt.Printf("cleaned:   %s\n", title.Clean(raw))
					fmt.Printf("artist:    %s\n", info.Artist)
					fmt.Printf("title:     %s\n", info.Title)
					fmt.Printf("recommend: %s\n", recommend.Query(raw))
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "Search YouTube the way the bot does",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of results",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "music",
						Usage: "Only return music videos",
						Value: true,
					},
				},
				Action: func(c *cli.Context) error {
					provider, err := newProvider(c)
					if err != nil {
						return cli.Exit("Failed to create search provider: "+err.Error(), 1)
					}

					videos, err := provider.Search(c.Context, search.Request{
						Query:      argOrPrompt(c, "Enter search query"),
						MaxResults: c.Int("max"),
						MusicOnly:  c.Bool("music"),
					})
					if err != nil {
						return cli.Exit("Search failed: "+err.Error(), 1)
					}

					for _, v := range videos {
						log.Printf("%s  %s  (%s)", v.ID, v.Title, v.Channel)
					}
					return nil
				},
			},
			{
				Name:      "recommend",
				Usage:     "Pick the song autoplay would play after a video",
				ArgsUsage: "<youtube url>",
				Action: func(c *cli.Context) error {
					provider, err := newProvider(c)
					if err != nil {
						return cli.Exit("Failed to create search provider: "+err.Error(), 1)
					}

					seedTrack, err := search.NewResolver(provider).Resolve(c.Context, argOrPrompt(c, "Enter YouTube URL or title"))
					if err != nil {
						return cli.Exit("Failed to resolve seed: "+err.Error(), 1)
					}
					log.Printf("seed: %s (%s)", seedTrack.Title, seedTrack.VideoID)

					pick, ok := recommend.NewSelector(provider).Next(c.Context, recommend.Seed{
						VideoID: seedTrack.VideoID,
						Title:   seedTrack.Title,
					})
					if !ok {
						log.Println("No recommendation found.")
						return nil
					}
					log.Printf("next: %s (%s)", pick.Track.Title, pick.Track.URL)
					return nil
				},
			},
			{
				Name:      "stream",
				Usage:     "Run the yt-dlp and ffmpeg pipeline and write length-prefixed Opus frames",
				ArgsUsage: "<youtube url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Usage:    "File to write frames to",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					mediaConfig, err := config.NewMediaConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load media config: "+err.Error(), 1)
					}

					url := argOrPrompt(c, "Enter YouTube URL")
					if id, ok := track.ExtractVideoID(url); ok {
						url = track.WatchURL(id)
					}

					f, err := os.Create(c.String("out"))
					if err != nil {
						return cli.Exit("Failed to create output file: "+err.Error(), 1)
					}
					defer f.Close()

					manager := pipeline.NewManager(&pipeline.ExecSpawner{
						YtdlpPath:  mediaConfig.YtdlpPath,
						FFmpegPath: mediaConfig.FFmpegPath,
						CookieFile: mediaConfig.CookieFile,
					}, nil, 0)
					defer manager.Teardown()

					out, err := manager.Acquire(c.Context, url)
					if err != nil {
						return cli.Exit("Failed to start pipeline: "+err.Error(), 1)
					}

					n, err := opus.Copy(opus.NewFrameWriter(f), opus.NewOggReader(out))
					if err != nil {
						return cli.Exit("Failed to copy frames: "+err.Error(), 1)
					}
					log.Printf("Wrote %d frames to %s", n, c.String("out"))
					return nil
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
