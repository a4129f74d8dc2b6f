package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Scrape  ScrapeConfig
	Bridge  BridgeConfig
	Server  ServerConfig
	Log     LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	SearchLimit  int
}

type ScrapeConfig struct {
	CacheSize         int
	RequestsPerMinute int
}

type BridgeConfig struct {
	YouTubeAPIKey string
	SearchLimit   int
	YTDLPath      string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			SearchLimit: 10,
		},
		Scrape: ScrapeConfig{
			CacheSize:         256,
			RequestsPerMinute: 30,
		},
		Bridge: BridgeConfig{
			SearchLimit: 5,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
