package flashcard

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flexster/internal/core"
	"flexster/internal/store"
)

// SongResolver turns one query into a resolved row. Implementations never
// return an error; failed lookups come back as partial rows.
type SongResolver interface {
	Resolve(ctx context.Context, q core.SongQuery) core.ResolvedSong
}

// Card is one populated grid cell. An empty Link marks a placeholder cell
// that still prints the query text but carries no QR code.
type Card struct {
	Song core.ResolvedSong
	Link string
}

// Placeholder reports whether this cell prints without a QR code.
func (c Card) Placeholder() bool {
	return c.Link == ""
}

// Deck is the assembled card set for one batch, in input order with
// duplicates removed.
type Deck struct {
	Cards        []Card
	Placeholders int
}

// Assembler fans queries out to the resolver and assembles the deck.
type Assembler struct {
	resolver    SongResolver
	dedup       *store.DedupStore
	parallelism int
	platform    string
	logger      *zap.Logger
}

func NewAssembler(resolver SongResolver, dedup *store.DedupStore, parallelism int, platform string, logger *zap.Logger) *Assembler {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Assembler{
		resolver:    resolver,
		dedup:       dedup,
		parallelism: parallelism,
		platform:    platform,
		logger:      logger,
	}
}

// ResolveAll resolves every query concurrently, preserving input order.
// Individual failures become partial rows; only context cancellation stops
// the batch early.
func (a *Assembler) ResolveAll(ctx context.Context, queries []core.SongQuery) ([]core.ResolvedSong, error) {
	rows := make([]core.ResolvedSong, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)

	for i, q := range queries {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rows[i] = a.resolver.Resolve(gCtx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// BuildDeck selects the link for each row, drops rows whose link was already
// dealt, and counts placeholders. Returns ErrNothingResolvable only when no
// row resolved metadata and no row carries a playable link.
func (a *Assembler) BuildDeck(rows []core.ResolvedSong) (*Deck, error) {
	deck := &Deck{Cards: make([]Card, 0, len(rows))}

	resolved := 0
	for _, row := range rows {
		link := row.Link(a.platform)
		if link == "" {
			a.logger.Warn("No playable link, keeping placeholder cell",
				zap.String("query", row.Query.String()),
				zap.Error(row.Err))
			deck.Cards = append(deck.Cards, Card{Song: row})
			deck.Placeholders++
			// A row with good metadata still earns its cell even when
			// neither source returned a URL.
			if !row.Partial {
				resolved++
			}
			continue
		}

		if a.dedup != nil && a.dedup.SeenOrAdd(link) {
			a.logger.Info("Skipping duplicate song",
				zap.String("query", row.Query.String()),
				zap.String("link", link))
			continue
		}

		deck.Cards = append(deck.Cards, Card{Song: row, Link: link})
		resolved++
	}

	if resolved == 0 {
		return nil, core.ErrNothingResolvable
	}
	return deck, nil
}
