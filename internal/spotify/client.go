// Package spotify wraps the Spotify Web API for two jobs: attaching Spotify
// track links to resolved songs (client-credentials search) and running the
// OAuth session behind the Web Playback SDK page (authorization code flow).
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"flexster/internal/core"
)

// FilePermission is the permission for the persisted token file.
const FilePermission = 0600

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	auth   *spotifyauth.Authenticator

	mu  sync.Mutex
	api *spotify.Client // client-credentials API client, built lazily
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

// Configured reports whether API credentials are present. Without them the
// enricher is skipped and the SDK login routes answer with a setup hint.
func (c *Client) Configured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// TrackURL searches the catalog for a title/artist pair and returns the open
// web URL of the first hit. A miss returns "" without error; rows without a
// Spotify link are a normal outcome.
func (c *Client) TrackURL(ctx context.Context, title, artist string) (string, error) {
	api, err := c.ensureAPI(ctx)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf("track:%s", title)
	if artist != "" {
		query += fmt.Sprintf(" artist:%s", artist)
	}

	results, err := api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return "", fmt.Errorf("spotify search failed: %w", err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return "", nil
	}

	track := results.Tracks.Tracks[0]
	url := track.ExternalURLs["spotify"]

	c.logger.Debug("spotify track matched",
		zap.String("query", query),
		zap.String("url", url))

	return url, nil
}

func (c *Client) ensureAPI(ctx context.Context) (*spotify.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil {
		return c.api, nil
	}
	if !c.Configured() {
		return nil, fmt.Errorf("spotify credentials not configured")
	}

	cc := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := cc.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials token: %w", err)
	}

	c.api = spotify.New(spotifyauth.New().Client(ctx, token))
	return c.api, nil
}

// AuthURL starts the authorization code flow for the Web Playback SDK page.
func (c *Client) AuthURL(state string) string {
	return c.auth.AuthURL(state)
}

// HandleCallback exchanges the redirect request for a token and persists it.
func (c *Client) HandleCallback(ctx context.Context, state string, r *http.Request) error {
	token, err := c.auth.Token(ctx, state, r)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if err := c.saveToken(token); err != nil {
		c.logger.Warn("failed to persist token", zap.Error(err))
	}

	c.logger.Info("spotify session established")
	return nil
}

// AccessToken returns a valid bearer token for the SDK page, refreshing the
// persisted one when expired. Callers without a stored session must run the
// login flow first.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	token, err := c.loadToken()
	if err != nil {
		return "", fmt.Errorf("no spotify session: %w", err)
	}

	if token.Valid() {
		return token.AccessToken, nil
	}

	// The transport refreshes on first use; Token() surfaces the new token.
	refreshed, err := spotify.New(c.auth.Client(ctx, token)).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	if err := c.saveToken(refreshed); err != nil {
		c.logger.Warn("failed to persist refreshed token", zap.Error(err))
	}

	return refreshed.AccessToken, nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.config.TokenPath)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file %s is empty", c.config.TokenPath)
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(TokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}
