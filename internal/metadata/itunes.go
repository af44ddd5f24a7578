// Package metadata resolves song queries against the iTunes Search API and
// MusicBrainz and merges the two answers into one SongMetadata per query.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"flexster/internal/core"
)

const (
	iTunesRequestTimeout = 10 * time.Second
	// iTunesSearchLimit bounds how many candidates a search returns; more
	// than a handful only dilutes disambiguation.
	iTunesSearchLimit = 5
)

// ErrNotFound is returned by a metadata source when the catalog has no match
// for the query. It is a per-row condition, never fatal for a batch.
var ErrNotFound = errors.New("no catalog match")

// ITunesSong is one row of an iTunes search or lookup answer.
type ITunesSong struct {
	TrackID    int64
	Title      string
	Artist     string
	Album      string
	Year       string
	Genre      string
	Composer   string
	CoverURL   string
	URL        string
	PreviewURL string
}

type iTunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []iTunesResult `json:"results"`
}

type iTunesResult struct {
	TrackID          int64  `json:"trackId"`
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	Composer         string `json:"composer"`
	PrimaryGenreName string `json:"primaryGenreName"`
	ReleaseDate      string `json:"releaseDate"`
	TrackViewURL     string `json:"trackViewUrl"`
	ArtworkURL100    string `json:"artworkUrl100"`
	PreviewURL       string `json:"previewUrl"`
}

// ITunesClient queries the iTunes Search API.
type ITunesClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewITunesClient(cfg *core.MetadataConfig, logger *zap.Logger) *ITunesClient {
	return &ITunesClient{
		baseURL: cfg.ITunesBaseURL,
		client: &http.Client{
			Timeout: iTunesRequestTimeout,
		},
		logger: logger,
	}
}

// Search runs a free-text catalog search and returns up to iTunesSearchLimit
// song candidates, best match first per the API's own ranking.
func (c *ITunesClient) Search(ctx context.Context, term string) ([]ITunesSong, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("media", "music")
	q.Set("limit", strconv.Itoa(iTunesSearchLimit))

	resp, err := c.get(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	songs := make([]ITunesSong, 0, len(resp.Results))
	for _, r := range resp.Results {
		songs = append(songs, r.song())
	}
	return songs, nil
}

// Lookup resolves a single track ID. The serve subsystem uses it to find the
// preview audio URL for a scanned Apple Music link.
func (c *ITunesClient) Lookup(ctx context.Context, trackID string) (*ITunesSong, error) {
	q := url.Values{}
	q.Set("id", trackID)
	q.Set("entity", "song")

	resp, err := c.get(ctx, c.baseURL+"/lookup?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	song := resp.Results[0].song()
	return &song, nil
}

// LookupPreview is the serve-mode view of Lookup: just the preview clip URL
// and the display fields the player shows while it plays.
func (c *ITunesClient) LookupPreview(ctx context.Context, trackID string) (previewURL, title, artist string, err error) {
	song, err := c.Lookup(ctx, trackID)
	if err != nil {
		return "", "", "", err
	}
	return song.PreviewURL, song.Title, song.Artist, nil
}

func (c *ITunesClient) get(ctx context.Context, reqURL string) (*iTunesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iTunes API returned status %d", resp.StatusCode)
	}

	var decoded iTunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode iTunes response: %w", err)
	}

	return &decoded, nil
}

func (r iTunesResult) song() ITunesSong {
	// releaseDate looks like "2011-01-24T08:00:00Z".
	year := ""
	if len(r.ReleaseDate) >= 4 {
		year = r.ReleaseDate[:4]
	}

	return ITunesSong{
		TrackID:    r.TrackID,
		Title:      r.TrackName,
		Artist:     r.ArtistName,
		Album:      r.CollectionName,
		Year:       year,
		Genre:      r.PrimaryGenreName,
		Composer:   r.Composer,
		CoverURL:   r.ArtworkURL100,
		URL:        r.TrackViewURL,
		PreviewURL: r.PreviewURL,
	}
}
