package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"flexster/internal/core"
	"flexster/pkg/fuzzy"
)

const (
	mbRequestTimeout = 10 * time.Second
	// mbMinScore rejects low-confidence search hits; MusicBrainz scores
	// matches 0-100.
	mbMinScore = 80
)

type mbRecordingSearch struct {
	Recordings []mbRecording `json:"recordings"`
}

type mbRecording struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Score        int    `json:"score"`
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

type mbRelations struct {
	Relations []mbRelation `json:"relations"`
}

type mbWorkSearch struct {
	Works []struct {
		ID string `json:"id"`
	} `json:"works"`
}

type mbRelation struct {
	Type       string `json:"type"`
	TargetType string `json:"target-type"`
	Work       struct {
		ID string `json:"id"`
	} `json:"work"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

// Recording is a MusicBrainz search hit: the canonical title/artist spelling
// for a recording.
type Recording struct {
	ID     string
	Title  string
	Artist string
}

// MusicBrainzClient queries the MusicBrainz web service. Requests honor the
// service's one-request-per-second guideline and carry a descriptive
// User-Agent as MusicBrainz requires.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	client     *http.Client
	limiter    *rate.Limiter
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewMusicBrainzClient(cfg *core.MetadataConfig, logger *zap.Logger) *MusicBrainzClient {
	return &MusicBrainzClient{
		baseURL:   cfg.MusicBrainzBaseURL,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: mbRequestTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// SearchRecording finds the canonical recording for a title and artist.
// Title variants (literal, prefix-stripped, bracket-stripped) are tried in
// order until one matches with an acceptable score.
func (c *MusicBrainzClient) SearchRecording(ctx context.Context, title, artist string) (*Recording, error) {
	for _, variant := range c.normalizer.TitleVariants(title) {
		query := luceneRecordingQuery(variant, artist)

		var decoded mbRecordingSearch
		if err := c.get(ctx, "/recording", url.Values{"query": {query}, "limit": {"1"}}, &decoded); err != nil {
			return nil, err
		}

		if len(decoded.Recordings) == 0 {
			continue
		}
		rec := decoded.Recordings[0]
		if rec.Score < mbMinScore {
			continue
		}

		out := &Recording{ID: rec.ID, Title: rec.Title}
		if len(rec.ArtistCredit) > 0 {
			names := make([]string, 0, len(rec.ArtistCredit))
			for _, ac := range rec.ArtistCredit {
				names = append(names, ac.Name)
			}
			out.Artist = strings.Join(names, ", ")
		}
		return out, nil
	}

	return nil, ErrNotFound
}

// Composer walks the recording's work relations to the composer credit.
// Used when iTunes has no composer field for a classical piece.
func (c *MusicBrainzClient) Composer(ctx context.Context, recordingID string) (string, error) {
	var rec mbRelations
	if err := c.get(ctx, "/recording/"+recordingID, url.Values{"inc": {"work-rels"}}, &rec); err != nil {
		return "", err
	}

	workID := ""
	for _, rel := range rec.Relations {
		if rel.TargetType == "work" && rel.Work.ID != "" {
			workID = rel.Work.ID
			break
		}
	}
	if workID == "" {
		return "", ErrNotFound
	}

	var work mbRelations
	if err := c.get(ctx, "/work/"+workID, url.Values{"inc": {"artist-rels"}}, &work); err != nil {
		return "", err
	}

	for _, rel := range work.Relations {
		if rel.Type == "composer" && rel.Artist.Name != "" {
			return rel.Artist.Name, nil
		}
	}
	return "", ErrNotFound
}

// ComposerFromWorkSearch looks the composer up through a work search on the
// raw query text. For classical queries like "Handel Giulio Cesare" the
// recording often carries no work relation, but the work itself is findable
// by name. A composer credit is accepted only when the name also appears in
// the artist credit or in the query, so an unrelated work cannot attach the
// wrong composer.
func (c *MusicBrainzClient) ComposerFromWorkSearch(ctx context.Context, query, artist string) (string, error) {
	var decoded mbWorkSearch
	if err := c.get(ctx, "/work", url.Values{"query": {query}, "limit": {"3"}}, &decoded); err != nil {
		return "", err
	}

	for _, w := range decoded.Works {
		var work mbRelations
		if err := c.get(ctx, "/work/"+w.ID, url.Values{"inc": {"artist-rels"}}, &work); err != nil {
			c.logger.Debug("work lookup failed",
				zap.String("work", w.ID),
				zap.Error(err))
			continue
		}

		for _, rel := range work.Relations {
			if rel.Type != "composer" || rel.Artist.Name == "" {
				continue
			}
			if composerMatchesContext(rel.Artist.Name, artist, query) {
				return rel.Artist.Name, nil
			}
		}
	}

	return "", ErrNotFound
}

// composerMatchesContext checks that a candidate composer is plausibly the
// one the query is about: the full name appears in the artist credit, or a
// name part longer than three runes appears in the query text.
func composerMatchesContext(composer, artist, query string) bool {
	lowComposer := strings.ToLower(composer)
	if artist != "" && strings.Contains(strings.ToLower(artist), lowComposer) {
		return true
	}

	lowQuery := strings.ToLower(query)
	for _, part := range strings.Fields(lowComposer) {
		if len([]rune(part)) > 3 && strings.Contains(lowQuery, part) {
			return true
		}
	}
	return false
}

func (c *MusicBrainzClient) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("fmt", "json")
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("MusicBrainz returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode MusicBrainz response: %w", err)
	}

	return nil
}

// luceneRecordingQuery builds a fielded Lucene query, quoting values and
// splitting multi-artist credits into an OR group.
func luceneRecordingQuery(title, artist string) string {
	title = strings.ReplaceAll(title, `"`, "")

	var sb strings.Builder
	fmt.Fprintf(&sb, `recording:"%s"`, title)

	artists := splitArtists(artist)
	if len(artists) > 0 {
		quoted := make([]string, 0, len(artists))
		for _, a := range artists {
			quoted = append(quoted, `"`+a+`"`)
		}
		fmt.Fprintf(&sb, " AND artist:(%s)", strings.Join(quoted, " OR "))
	}

	return sb.String()
}

// splitArtists breaks credits like "Pichon, Pygmalion & Devieilhe" into
// individual names.
func splitArtists(artist string) []string {
	if artist == "" {
		return nil
	}

	parts := strings.FieldsFunc(artist, func(r rune) bool {
		return r == ',' || r == '&'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, `"`, ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
