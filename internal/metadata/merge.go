package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"flexster/internal/core"
	"flexster/pkg/fuzzy"
)

// matchThreshold is the similarity floor for treating the two sources'
// answers as the same recording.
const matchThreshold = 0.65

// Disambiguator picks the best catalog hit for a query when a search returns
// several plausible candidates. Implementations may consult an LLM; a nil
// Disambiguator (or any failure) falls back to the source's own ranking.
type Disambiguator interface {
	PickBest(ctx context.Context, query string, hits []core.CatalogHit) (int, error)
}

// LinkEnricher attaches a platform URL for a resolved title/artist pair.
// Used to add the Spotify link next to the Apple one; a miss returns "".
type LinkEnricher interface {
	TrackURL(ctx context.Context, title, artist string) (string, error)
}

// Resolver merges the two metadata sources for one query. Per-source failures
// downgrade the row; Resolve never returns an error for the batch to handle.
type Resolver struct {
	cfg        core.MetadataConfig
	itunes     *ITunesClient
	mb         *MusicBrainzClient
	enricher   LinkEnricher
	disambig   Disambiguator
	cache      *Cache
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewResolver(
	cfg core.MetadataConfig,
	itunes *ITunesClient,
	mb *MusicBrainzClient,
	enricher LinkEnricher,
	disambig Disambiguator,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		cfg:        cfg,
		itunes:     itunes,
		mb:         mb,
		enricher:   enricher,
		disambig:   disambig,
		cache:      NewCache(cfg.CacheSize),
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// Resolve turns one SongQuery into a ResolvedSong. The outcome is total:
// both sources failing yields a partial row that keeps the literal query
// fields, never an aborted batch.
func (r *Resolver) Resolve(ctx context.Context, q core.SongQuery) core.ResolvedSong {
	if meta, ok := r.cache.Get(q); ok {
		return core.ResolvedSong{Query: q, Metadata: meta}
	}

	itSong, itErr := r.fromITunes(ctx, q)
	if itErr != nil {
		r.logger.Warn("iTunes lookup failed",
			zap.String("query", q.String()),
			zap.Error(itErr))
	}

	mbRec, mbErr := r.fromMusicBrainz(ctx, q, itSong)
	if mbErr != nil {
		r.logger.Warn("MusicBrainz lookup failed",
			zap.String("query", q.String()),
			zap.Error(mbErr))
	}

	if itErr != nil && mbErr != nil {
		return core.ResolvedSong{
			Query: q,
			Metadata: core.SongMetadata{
				Title:  q.Title,
				Artist: q.Artist,
			},
			Partial: true,
			Err:     fmt.Errorf("%w: %v / %v", core.ErrMetadataLookup, itErr, mbErr),
		}
	}

	meta := r.merge(q, itSong, mbRec)
	r.fillComposer(ctx, q, &meta, itSong, mbRec)
	r.fillSpotifyURL(ctx, &meta)

	r.cache.Add(q, meta)
	return core.ResolvedSong{Query: q, Metadata: meta}
}

func (r *Resolver) fromITunes(ctx context.Context, q core.SongQuery) (*ITunesSong, error) {
	var songs []ITunesSong
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		songs, err = r.itunes.Search(ctx, q.String())
		return err
	})
	if err != nil {
		return nil, err
	}

	return &songs[r.pickHit(ctx, q, songs)], nil
}

// pickHit selects among multiple search candidates: the disambiguator when
// one is configured, otherwise the API's own first-is-best ranking.
func (r *Resolver) pickHit(ctx context.Context, q core.SongQuery, songs []ITunesSong) int {
	if r.disambig == nil || len(songs) < 2 {
		return 0
	}

	hits := make([]core.CatalogHit, 0, len(songs))
	for _, s := range songs {
		hits = append(hits, core.CatalogHit{
			Title:  s.Title,
			Artist: s.Artist,
			Album:  s.Album,
			Year:   s.Year,
		})
	}

	idx, err := r.disambig.PickBest(ctx, q.String(), hits)
	if err != nil || idx < 0 || idx >= len(songs) {
		return 0
	}
	return idx
}

// fromMusicBrainz searches with the iTunes spelling when available, so the
// two sources describe the same recording, and falls back to the raw query.
func (r *Resolver) fromMusicBrainz(ctx context.Context, q core.SongQuery, itSong *ITunesSong) (*Recording, error) {
	title, artist := q.Title, q.Artist
	if itSong != nil {
		title, artist = itSong.Title, itSong.Artist
	}

	var rec *Recording
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		rec, err = r.mb.SearchRecording(ctx, title, artist)
		return err
	})
	if err != nil {
		return nil, err
	}

	// A hit that does not describe the same recording as the query is worse
	// than no hit: it would overwrite the title with an unrelated song.
	if itSong != nil && !r.normalizer.SameRecording(itSong.Title, itSong.Artist, rec.Title, rec.Artist, matchThreshold) {
		return nil, ErrNotFound
	}

	return rec, nil
}

// merge applies the configured policy: the text source wins title/artist
// spelling, the art source wins album and cover. Fields a winning source
// cannot provide fall back to the other source.
func (r *Resolver) merge(q core.SongQuery, itSong *ITunesSong, mbRec *Recording) core.SongMetadata {
	meta := core.SongMetadata{
		Title:  q.Title,
		Artist: q.Artist,
	}

	if itSong != nil {
		meta.Title = itSong.Title
		meta.Artist = itSong.Artist
		meta.Album = itSong.Album
		meta.Year = itSong.Year
		meta.Genre = itSong.Genre
		meta.CoverURL = itSong.CoverURL
		meta.AppleURL = itSong.URL
	}

	// The losing text source still backstops the winner: with the iTunes
	// policy and no iTunes hit, the MusicBrainz spelling beats echoing the
	// literal query.
	if mbRec != nil && (r.cfg.MergePolicy.TextSource == core.SourceMusicBrainz || itSong == nil) {
		if mbRec.Title != "" {
			meta.Title = mbRec.Title
		}
		if mbRec.Artist != "" {
			meta.Artist = mbRec.Artist
		}
	}
	// Art policy: MusicBrainz carries no album art, so art from iTunes is a
	// no-op above and art from MusicBrainz clears nothing; the policy only
	// flips which spelling survives.
	if itSong != nil && r.cfg.MergePolicy.TextSource == core.SourceITunes {
		meta.Title = itSong.Title
		meta.Artist = itSong.Artist
	}

	return meta
}

func (r *Resolver) fillComposer(ctx context.Context, q core.SongQuery, meta *core.SongMetadata, itSong *ITunesSong, mbRec *Recording) {
	if itSong != nil && itSong.Composer != "" {
		meta.Composer = itSong.Composer
		return
	}

	if mbRec != nil {
		composer, err := r.mb.Composer(ctx, mbRec.ID)
		if err == nil {
			meta.Composer = composer
			return
		}
		r.logger.Debug("composer lookup failed",
			zap.String("recording", mbRec.ID),
			zap.Error(err))
	}

	// Last resort for classical pieces whose recording carries no work
	// relation: search works by the raw query text.
	composer, err := r.mb.ComposerFromWorkSearch(ctx, q.String(), meta.Artist)
	if err != nil {
		r.logger.Debug("composer work search failed",
			zap.String("query", q.String()),
			zap.Error(err))
		return
	}
	meta.Composer = composer
}

func (r *Resolver) fillSpotifyURL(ctx context.Context, meta *core.SongMetadata) {
	if r.enricher == nil || meta.Title == "" {
		return
	}

	spotifyURL, err := r.enricher.TrackURL(ctx, meta.Title, meta.Artist)
	if err != nil {
		r.logger.Debug("spotify enrichment failed",
			zap.String("title", meta.Title),
			zap.Error(err))
		return
	}
	meta.SpotifyURL = spotifyURL
}

// withRetry runs fn up to MaxRetries+1 times with a fixed delay between
// attempts, honoring context cancellation.
func (r *Resolver) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		// Catalog misses are definitive; only transport errors retry.
		if errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return err
}
