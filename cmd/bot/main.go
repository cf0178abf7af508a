package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glizzus/toribot/internal/cache"
	"github.com/glizzus/toribot/internal/config"
	"github.com/glizzus/toribot/internal/handler"
	"github.com/glizzus/toribot/internal/lyrics"
	"github.com/glizzus/toribot/internal/opus"
	"github.com/glizzus/toribot/internal/pipeline"
	"github.com/glizzus/toribot/internal/playback"
	"github.com/glizzus/toribot/internal/recommend"
	"github.com/glizzus/toribot/internal/search"
	"github.com/glizzus/toribot/internal/voice"
	"github.com/redis/go-redis/v9"
)

const lyricsHTTPTimeout = 15 * time.Second

func newCache(ctx context.Context, cfg *config.RedisConfig) (cache.Cache, func(), error) {
	if !cfg.Enabled() {
		slog.Info("REDIS_ADDR not set, caching in memory")
		return cache.NewMemory(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	closeClient := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	return cache.NewRedis(client, cfg.Prefix), closeClient, nil
}

func newProvider(ctx context.Context, cfg *config.YouTubeConfig) (search.Provider, error) {
	if cfg.APIKey == "" {
		slog.Warn("YOUTUBE_API_KEY not set, using keyless search")
		return search.NewKeyless(), nil
	}
	return search.NewYouTube(ctx, cfg.APIKey, cfg.RequestsPerSecond)
}

func logCookieFile(path string) {
	if _, err := os.Stat(path); err != nil {
		slog.Warn("yt-dlp cookie file not found, some videos may be refused", "path", path)
		return
	}
	slog.Info("using yt-dlp cookie file", "path", path)
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	level, err := logConfig.SlogLevel()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	slog.SetLogLoggerLevel(level)

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	mediaConfig, err := config.NewMediaConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load media config: %w", err)
	}
	youtubeConfig, err := config.NewYouTubeConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load youtube config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeCache, err := newCache(ctx, redisConfig)
	if err != nil {
		return err
	}
	defer closeCache()

	provider, err := newProvider(ctx, youtubeConfig)
	if err != nil {
		return err
	}
	provider = search.NewCached(provider, store, search.DefaultCacheTTL)

	logCookieFile(mediaConfig.CookieFile)

	player := opus.NewPlayer(func(r io.Reader) opus.FrameSource {
		return opus.NewOggReader(r)
	}, opus.DefaultSendTimeout)
	manager := pipeline.NewManager(&pipeline.ExecSpawner{
		YtdlpPath:  mediaConfig.YtdlpPath,
		FFmpegPath: mediaConfig.FFmpegPath,
		CookieFile: mediaConfig.CookieFile,
	}, player, mediaConfig.SettleDelay)

	router := handler.NewFlowManager(nil)
	router.RegisterFlow(handler.PingFlow)

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready:             handler.ReadyLog,
		InteractionCreate: handler.MakeInteractionCreateHandler(router),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	machine := playback.NewMachine(
		manager,
		player,
		voice.NewTransport(session),
		recommend.NewSelector(provider),
		playback.Config{
			ReadyTimeout: mediaConfig.ReadyTimeout,
			Autoplay:     mediaConfig.Autoplay,
		},
	)
	go machine.Run(ctx)

	lyricsClient := lyrics.NewClient(&http.Client{Timeout: lyricsHTTPTimeout}, lyrics.DefaultBaseURL, store)
	music := handler.NewMusic(machine, search.NewResolver(provider), lyricsClient, session.State)
	for _, flow := range music.Flows() {
		router.RegisterFlow(flow)
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.CommandGuildID()); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	machine.Stop()
	machine.Wait()
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
