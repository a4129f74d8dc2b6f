// Package main provides the TuneBridge CLI application entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github.com/wader/goutubedl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tunebridge/internal/bridge"
	"tunebridge/internal/core"
	httpserver "tunebridge/internal/http"
	"tunebridge/internal/resolver"
	"tunebridge/internal/scrape"
	"tunebridge/internal/spotify"
)

const (
	version           = "1.0.0"
	defaultServerHost = "0.0.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tunebridge",
	Short: "TuneBridge - music query resolution and stream bridging",
	Long: `TuneBridge resolves music queries (links, URIs, free text) to canonical
track and playlist metadata, falling back to embed page scraping when the
provider API cannot serve a query, and bridges tracks to playable streams.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolution HTTP service",
	RunE:  runServe,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a query and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var streamCmd = &cobra.Command{
	Use:   "stream <query>",
	Short: "Resolve a query, bridge its first track and write the audio to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runStream,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().Int("search-limit", 10, "Maximum catalog search results")
	rootCmd.PersistentFlags().Int("scrape-cache-size", 256, "Embed payload cache capacity")
	rootCmd.PersistentFlags().Int("scrape-limit-per-minute", 30, "Embed requests allowed per host per minute")
	rootCmd.PersistentFlags().String("youtube-api-key", "", "YouTube Data API key (yt-dlp is used without one)")
	rootCmd.PersistentFlags().Int("bridge-search-limit", 5, "Maximum bridge search candidates")
	rootCmd.PersistentFlags().String("ytdlp-path", "", "Path to the yt-dlp binary")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	resolveCmd.Flags().String("type", "auto", "query type (auto, track, playlist, album, search)")
	resolveCmd.Flags().String("requester", "", "requester tag stamped onto resolved tracks")
	streamCmd.Flags().Bool("url-only", false, "print the bridged watch URL instead of audio")

	rootCmd.AddCommand(serveCmd, resolveCmd, streamCmd)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("TUNEBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(&config.Log)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if limit := viper.GetInt("search-limit"); limit > 0 {
		cfg.Spotify.SearchLimit = limit
	}

	if size := viper.GetInt("scrape-cache-size"); size > 0 {
		cfg.Scrape.CacheSize = size
	}
	if perMinute := viper.GetInt("scrape-limit-per-minute"); perMinute > 0 {
		cfg.Scrape.RequestsPerMinute = perMinute
	}

	cfg.Bridge.YouTubeAPIKey = viper.GetString("youtube-api-key")
	if limit := viper.GetInt("bridge-search-limit"); limit > 0 {
		cfg.Bridge.SearchLimit = limit
	}
	cfg.Bridge.YTDLPath = viper.GetString("ytdlp-path")

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}

	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	return cfg
}

func buildLogger(logConfig *core.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.ToLower(logConfig.Format) == "console" {
		cfg.Encoding = "console"
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

// buildResolver wires the resolution engine. The scraper is returned
// separately so callers can stop its cleanup goroutine and poll its cache
// size.
func buildResolver() (*resolver.Resolver, *scrape.Scraper) {
	if config.Bridge.YTDLPath != "" {
		goutubedl.Path = config.Bridge.YTDLPath
	}

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	scraper := scrape.NewScraper(&config.Scrape, logger.Named("scrape"))
	youtubeBridge := bridge.NewYouTube(&config.Bridge, logger.Named("bridge"))

	var tokens resolver.TokenSource
	if guard := spotifyClient.Tokens(); guard != nil {
		tokens = guard
	}

	queryResolver := resolver.New(
		spotifyClient,
		scraper,
		tokens,
		youtubeBridge,
		logger.Named("resolver"),
	)

	return queryResolver, scraper
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting TuneBridge",
		zap.String("version", version),
		zap.Bool("spotify_api", config.Spotify.ClientID != ""),
		zap.Bool("youtube_api", config.Bridge.YouTubeAPIKey != ""))

	queryResolver, scraper := buildResolver()
	defer scraper.Stop()

	httpServer := httpserver.NewServer(&config.Server, queryResolver, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				httpServer.SetScrapeCacheEntries(scraper.CacheSize())
			}
		}
	})

	logger.Info("TuneBridge started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("TuneBridge stopped with error", zap.Error(err))
		return err
	}

	logger.Info("TuneBridge stopped gracefully")
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queryResolver, scraper := buildResolver()
	defer scraper.Stop()

	queryType, _ := cmd.Flags().GetString("type")
	requester, _ := cmd.Flags().GetString("requester")

	result, err := queryResolver.Resolve(ctx, resolver.Request{
		Query:     args[0],
		Type:      core.QueryType(queryType),
		Requester: requester,
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queryResolver, scraper := buildResolver()
	defer scraper.Stop()

	result, err := queryResolver.Resolve(ctx, resolver.Request{Query: args[0]})
	if err != nil {
		return err
	}
	if len(result.Tracks) == 0 {
		return fmt.Errorf("no tracks found for %q", args[0])
	}

	track := result.Tracks[0]
	logger.Info("Resolved track",
		zap.String("title", track.Title),
		zap.String("author", track.Author),
		zap.String("duration", track.Duration))

	if urlOnly, _ := cmd.Flags().GetBool("url-only"); urlOnly {
		data, bridgeErr := track.Bridge(ctx)
		if bridgeErr != nil {
			return bridgeErr
		}
		fmt.Println(data.URL)
		return nil
	}

	handle, err := queryResolver.Stream(ctx, track)
	if err != nil {
		return err
	}
	if handle.Stream == nil {
		fmt.Println(handle.URL)
		return nil
	}
	defer func() { _ = handle.Stream.Close() }()

	if _, err := io.Copy(os.Stdout, handle.Stream); err != nil {
		return fmt.Errorf("failed to copy stream: %w", err)
	}

	return nil
}
