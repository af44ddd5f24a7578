// Package main provides the Flexster CLI application entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"flexster/internal/core"
	"flexster/internal/flashcard"
	httpserver "flexster/internal/http"
	"flexster/internal/llm"
	"flexster/internal/metadata"
	"flexster/internal/pdf"
	"flexster/internal/spotify"
	"flexster/internal/store"
	"flexster/pkg/musicref"
)

// defaultTitles is the demo batch used when no input file is given.
var defaultTitles = []string{
	"Handel Giulio Cesare",
	"A Love Supreme (Acknowledgment)",
	"Bohemian Rhapsody",
	"Kind of Blue So What",
	"Beethoven Symphony 9",
}

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flexster",
	Short: "Flexster - music flashcards with scannable QR codes",
	Long: `Flexster turns a list of song titles into printable flashcards with QR codes
that link to Apple Music or Spotify, and serves the scan-and-play page that
turns a phone camera into the card player.`,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Resolve song titles and render the flashcard PDF",
	RunE:  runGenerate,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan-and-play page over HTTPS",
	RunE:  runServe,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <url>",
	Short: "Classify a music link and print its embed target",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var qrCmd = &cobra.Command{
	Use:   "qr <url>",
	Short: "Render a QR code for a link, to the terminal or a PNG file",
	Args:  cobra.ExactArgs(1),
	RunE:  runQR,
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
	rootCmd.PersistentFlags().String("log-format", "json", "log output format (json, console)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider for search disambiguation (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().String("merge-text-source", "musicbrainz", "Source that wins title/artist spelling (itunes, musicbrainz)")
	rootCmd.PersistentFlags().String("merge-art-source", "itunes", "Source that wins album art (itunes, musicbrainz)")

	generateCmd.Flags().StringP("input", "i", "", "Text file with song titles, one per line (default: built-in demo list)")
	generateCmd.Flags().IntP("rows", "r", 4, "Card rows per page")
	generateCmd.Flags().IntP("cols", "c", 3, "Card columns per page")
	generateCmd.Flags().Bool("no-mirror", false, "Disable the mirrored back page (for single-sided printing)")
	generateCmd.Flags().StringP("platform", "p", "apple", "Preferred QR link platform (apple, spotify)")
	generateCmd.Flags().StringP("output", "o", "music_cards", "Output filename prefix, writes <prefix>.pdf and <prefix>.csv")
	generateCmd.Flags().Int("parallelism", 4, "Concurrent metadata lookups")

	serveCmd.Flags().String("server-host", "127.0.0.1", "HTTPS server host")
	serveCmd.Flags().Int("server-port", 8000, "HTTPS server port")
	serveCmd.Flags().String("web-dir", "./web", "Static assets directory")
	serveCmd.Flags().String("cert-dir", "./certs", "TLS certificate directory")

	classifyCmd.Flags().String("mode", "embed", "Playback mode (embed, preview, sdk)")

	qrCmd.Flags().String("out", "", "Write a PNG to this path instead of drawing to the terminal")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(generateCmd, serveCmd, classifyCmd, qrCmd)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("FLEXSTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if redirect := viper.GetString("spotify-redirect-url"); redirect != "" {
		cfg.Spotify.RedirectURL = redirect
	}
	if tokenPath := viper.GetString("spotify-token-path"); tokenPath != "" {
		cfg.Spotify.TokenPath = tokenPath
	}

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	if baseURL := viper.GetString("llm-base-url"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}

	cfg.Metadata.MergePolicy.TextSource = core.MetadataSource(viper.GetString("merge-text-source"))
	cfg.Metadata.MergePolicy.ArtSource = core.MetadataSource(viper.GetString("merge-art-source"))

	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")

	return cfg
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
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
	if strings.ToLower(format) == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	config.Flashcard.Rows, _ = flags.GetInt("rows")
	config.Flashcard.Cols, _ = flags.GetInt("cols")
	config.Flashcard.Platform, _ = flags.GetString("platform")
	config.Flashcard.Parallelism, _ = flags.GetInt("parallelism")
	noMirror, _ := flags.GetBool("no-mirror")
	config.Flashcard.Mirror = !noMirror

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputPath, _ := flags.GetString("input")
	queries, err := loadQueries(inputPath)
	if err != nil {
		return err
	}

	logger.Info("Resolving songs",
		zap.Int("count", len(queries)),
		zap.String("platform", config.Flashcard.Platform),
		zap.Int("parallelism", config.Flashcard.Parallelism))

	resolver, err := buildResolver()
	if err != nil {
		return err
	}

	dedup := store.NewDedupStore(config.Flashcard.DedupSize, 0.001)
	assembler := flashcard.NewAssembler(resolver, dedup,
		config.Flashcard.Parallelism, config.Flashcard.Platform,
		logger.Named("flashcard"))

	rows, err := assembler.ResolveAll(ctx, queries)
	if err != nil {
		return err
	}

	deck, err := assembler.BuildDeck(rows)
	if err != nil {
		return fmt.Errorf("no song could be resolved: %w", err)
	}

	prefix, _ := flags.GetString("output")
	if err := writeCSV(prefix+".csv", rows); err != nil {
		return err
	}
	if err := writePDF(prefix+".pdf", deck); err != nil {
		return err
	}

	logger.Info("Flashcards generated",
		zap.String("pdf", prefix+".pdf"),
		zap.String("csv", prefix+".csv"),
		zap.Int("cards", len(deck.Cards)),
		zap.Int("placeholders", deck.Placeholders))
	return nil
}

func loadQueries(inputPath string) ([]core.SongQuery, error) {
	titles := defaultTitles

	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()

		titles = nil
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				titles = append(titles, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		logger.Info("Loaded titles from file",
			zap.String("path", inputPath),
			zap.Int("count", len(titles)))
	} else {
		logger.Info("Using built-in demo title list")
	}

	if len(titles) == 0 {
		return nil, fmt.Errorf("input file contains no titles")
	}

	queries := make([]core.SongQuery, 0, len(titles))
	for _, t := range titles {
		queries = append(queries, core.ParseQuery(t))
	}
	return queries, nil
}

func buildResolver() (*metadata.Resolver, error) {
	var enricher metadata.LinkEnricher
	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if spotifyClient.Configured() {
		enricher = spotifyClient
	} else {
		logger.Info("Spotify credentials not set, cards will carry Apple Music links only")
	}

	disambig, err := createLLMProvider()
	if err != nil {
		return nil, err
	}

	return metadata.NewResolver(
		config.Metadata,
		metadata.NewITunesClient(&config.Metadata, logger.Named("itunes")),
		metadata.NewMusicBrainzClient(&config.Metadata, logger.Named("musicbrainz")),
		enricher,
		disambig,
		logger.Named("resolver"),
	), nil
}

func createLLMProvider() (metadata.Disambiguator, error) {
	if config.LLM.Provider == "none" || config.LLM.Provider == "" {
		return nil, nil
	}
	provider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

func writeCSV(path string, rows []core.ResolvedSong) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := flashcard.WriteCSV(f, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writePDF(path string, deck *flashcard.Deck) error {
	sheets := flashcard.Layout(deck, config.Flashcard.Rows, config.Flashcard.Cols, config.Flashcard.Mirror)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	renderer := pdf.NewRenderer(config.Flashcard.Rows, config.Flashcard.Cols, logger.Named("pdf"))
	if err := renderer.Render(f, sheets); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	config.Server.Host, _ = flags.GetString("server-host")
	config.Server.Port, _ = flags.GetInt("server-port")
	config.Server.WebDir, _ = flags.GetString("web-dir")
	config.Server.CertDir, _ = flags.GetString("cert-dir")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	history, err := store.NewHistoryStore(config.Server.HistoryPath, 1000, logger.Named("history"))
	if err != nil {
		// History is a convenience, not a requirement for playback.
		logger.Warn("Scan history disabled", zap.Error(err))
		history = nil
	} else {
		defer history.Close()
	}

	var tokens httpserver.TokenSource
	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if spotifyClient.Configured() {
		tokens = spotifyClient
	}

	previews := metadata.NewITunesClient(&config.Metadata, logger.Named("itunes"))
	server := httpserver.NewServer(&config.Server, previews, tokens, history, logger.Named("http"))

	logger.Info("Starting Flexster server",
		zap.String("addr", fmt.Sprintf("https://%s:%d", config.Server.Host, config.Server.Port)),
		zap.Bool("spotify_configured", tokens != nil))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := musicref.ParseMode(modeFlag)
	if err != nil {
		return fmt.Errorf("unknown mode %q: %w", modeFlag, err)
	}

	ref, err := musicref.Classify(args[0])
	if err != nil {
		return err
	}

	target, err := musicref.EmbedFor(ref, mode)
	if err != nil {
		return err
	}

	fmt.Printf("platform:   %s\n", ref.Platform)
	fmt.Printf("kind:       %s\n", ref.Kind)
	fmt.Printf("track id:   %s\n", ref.TrackID)
	if ref.Region != "" {
		fmt.Printf("region:     %s\n", ref.Region)
	}
	fmt.Printf("embed kind: %s\n", target.Kind)
	fmt.Printf("uri:        %s\n", target.URI)
	return nil
}

func runQR(cmd *cobra.Command, args []string) error {
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := qrcode.WriteFile(args[0], qrcode.Medium, 512, out); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		return nil
	}

	qrterminal.GenerateHalfBlock(args[0], qrterminal.L, os.Stdout)
	return nil
}
