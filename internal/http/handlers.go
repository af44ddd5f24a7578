package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"flexster/pkg/musicref"
)

// Error codes surfaced to the page. The scan loop keys its UI hints off
// these, so they are part of the API contract.
const (
	codeUnrecognizedURL     = "unrecognized_url"
	codeModeUnsupported     = "mode_unsupported"
	codePlaybackUnavailable = "playback_unavailable"
	codeSpotifyUnconfigured = "spotify_unconfigured"
	codeSpotifyAuthFailed   = "spotify_auth_failed"
)

// OAuth state for the single-user localhost flow.
const oauthState = "flexster-oauth"

type classifyResponse struct {
	Platform  string `json:"platform"`
	TrackID   string `json:"trackId"`
	Kind      string `json:"kind"`
	Region    string `json:"region,omitempty"`
	EmbedKind string `json:"embedKind"`
	URI       string `json:"uri"`
}

type previewResponse struct {
	PreviewURL string `json:"previewUrl"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleClassify turns a scanned URL into its platform reference and embed
// target. Unrecognized input is a client error with a stable code, never a
// server failure.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	mode, err := musicref.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.RecordClassification("unknown", "bad_mode")
		writeError(w, http.StatusUnprocessableEntity, codeModeUnsupported, "unknown playback mode")
		return
	}

	ref, err := musicref.Classify(raw)
	if err != nil {
		s.RecordClassification("unknown", "unrecognized")
		writeError(w, http.StatusUnprocessableEntity, codeUnrecognizedURL, "not a supported music link")
		return
	}

	target, err := musicref.EmbedFor(ref, mode)
	if err != nil {
		s.RecordClassification(ref.Platform.String(), "mode_unsupported")
		writeError(w, http.StatusUnprocessableEntity, codeModeUnsupported,
			"playback mode not supported for this platform")
		return
	}

	s.RecordClassification(ref.Platform.String(), "ok")
	s.recordScan(r, ref)

	writeJSON(w, http.StatusOK, classifyResponse{
		Platform:  ref.Platform.String(),
		TrackID:   ref.TrackID,
		Kind:      ref.Kind.String(),
		Region:    ref.Region,
		EmbedKind: target.Kind.String(),
		URI:       target.URI,
	})
}

// recordScan appends to history best-effort; a write failure never fails the
// classify request.
func (s *Server) recordScan(r *http.Request, ref musicref.MusicReference) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(r.Context(), ref.OriginalURL, ref.Platform.String(), ref.TrackID); err != nil {
		s.logger.Warn("Failed to record scan history", zap.Error(err))
	}
}

// handlePreview resolves an Apple Music track ID to its preview clip URL.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("id")
	if trackID == "" {
		s.RecordPreviewLookup("bad_request")
		writeError(w, http.StatusBadRequest, codePlaybackUnavailable, "missing track id")
		return
	}

	previewURL, title, artist, err := s.previews.LookupPreview(r.Context(), trackID)
	if err != nil || previewURL == "" {
		if err != nil {
			s.logger.Warn("Preview lookup failed",
				zap.String("track_id", trackID),
				zap.Error(err))
		}
		s.RecordPreviewLookup("miss")
		writeError(w, http.StatusNotFound, codePlaybackUnavailable, "no preview available for this track")
		return
	}

	s.RecordPreviewLookup("ok")
	writeJSON(w, http.StatusOK, previewResponse{
		PreviewURL: previewURL,
		Title:      title,
		Artist:     artist,
	})
}

// handleToken returns a Spotify access token for the Web Playback SDK.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil || !s.tokens.Configured() {
		s.RecordTokenRequest("unconfigured")
		writeError(w, http.StatusServiceUnavailable, codeSpotifyUnconfigured,
			"spotify credentials not configured")
		return
	}

	token, err := s.tokens.AccessToken(r.Context())
	if err != nil {
		s.logger.Error("Failed to get Spotify access token", zap.Error(err))
		s.RecordTokenRequest("error")
		writeError(w, http.StatusServiceUnavailable, codeSpotifyAuthFailed,
			"spotify authorization required, visit /login")
		return
	}

	s.RecordTokenRequest("ok")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil || !s.tokens.Configured() {
		writeError(w, http.StatusServiceUnavailable, codeSpotifyUnconfigured,
			"spotify credentials not configured")
		return
	}
	http.Redirect(w, r, s.tokens.AuthURL(oauthState), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, codeSpotifyUnconfigured,
			"spotify credentials not configured")
		return
	}

	if err := s.tokens.HandleCallback(r.Context(), oauthState, r); err != nil {
		s.logger.Error("Spotify OAuth callback failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, codeSpotifyAuthFailed, "authorization failed")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
