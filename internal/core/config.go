package core

import (
	"time"
)

type Config struct {
	Metadata  MetadataConfig
	Spotify   SpotifyConfig
	LLM       LLMConfig
	Flashcard FlashcardConfig
	Server    ServerConfig
	Log       LogConfig
}

type MetadataConfig struct {
	ITunesBaseURL      string
	MusicBrainzBaseURL string
	UserAgent          string
	MaxRetries         int
	RetryDelay         time.Duration
	CacheSize          int
	MergePolicy        MergePolicy
}

// MergePolicy decides which metadata source wins when both sources return a
// value for the same field. Art covers album name and cover URL, text covers
// title and artist spelling.
type MergePolicy struct {
	ArtSource  MetadataSource
	TextSource MetadataSource
}

type MetadataSource string

const (
	SourceITunes      MetadataSource = "itunes"
	SourceMusicBrainz MetadataSource = "musicbrainz"
)

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

type LLMConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Threshold float64
}

type FlashcardConfig struct {
	Rows        int
	Cols        int
	Mirror      bool
	Platform    string
	Parallelism int
	DedupSize   int
}

type ServerConfig struct {
	Host         string
	Port         int
	WebDir       string
	CertDir      string
	HistoryPath  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Metadata: MetadataConfig{
			ITunesBaseURL:      "https://itunes.apple.com",
			MusicBrainzBaseURL: "https://musicbrainz.org/ws/2",
			UserAgent:          "Flexster/0.1.0 ( contact@example.com )",
			MaxRetries:         2,
			RetryDelay:         500 * time.Millisecond,
			CacheSize:          256,
			MergePolicy: MergePolicy{
				ArtSource:  SourceITunes,
				TextSource: SourceMusicBrainz,
			},
		},
		Spotify: SpotifyConfig{
			RedirectURL: "https://127.0.0.1:8000/callback",
			TokenPath:   "./spotify_token.json",
		},
		LLM: LLMConfig{
			Provider:  "none",
			Threshold: 0.65,
		},
		Flashcard: FlashcardConfig{
			Rows:        4,
			Cols:        3,
			Mirror:      true,
			Platform:    "apple",
			Parallelism: 4,
			DedupSize:   1024,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			WebDir:       "./web",
			CertDir:      "./certs",
			HistoryPath:  "./scan_history.db",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks config values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Flashcard.Rows < 1 || c.Flashcard.Cols < 1 {
		return ErrInvalidGrid
	}
	if c.Flashcard.Platform != "apple" && c.Flashcard.Platform != "spotify" {
		return ErrInvalidPlatform
	}
	switch c.Metadata.MergePolicy.ArtSource {
	case SourceITunes, SourceMusicBrainz:
	default:
		return ErrInvalidMergeSource
	}
	switch c.Metadata.MergePolicy.TextSource {
	case SourceITunes, SourceMusicBrainz:
	default:
		return ErrInvalidMergeSource
	}
	return nil
}
