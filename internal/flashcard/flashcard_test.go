package flashcard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"flexster/internal/core"
	"flexster/internal/store"
)

type stubResolver struct {
	rows  map[string]core.ResolvedSong
	delay time.Duration
}

func (s *stubResolver) Resolve(ctx context.Context, q core.SongQuery) core.ResolvedSong {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return core.ResolvedSong{Query: q, Partial: true, Err: ctx.Err()}
		case <-time.After(s.delay):
		}
	}
	if row, ok := s.rows[q.Title]; ok {
		return row
	}
	return core.ResolvedSong{
		Query:    q,
		Metadata: core.SongMetadata{Title: q.Title, Artist: q.Artist},
		Partial:  true,
		Err:      core.ErrMetadataLookup,
	}
}

func resolvedRow(title, appleURL, spotifyURL string) core.ResolvedSong {
	return core.ResolvedSong{
		Query: core.SongQuery{Title: title},
		Metadata: core.SongMetadata{
			Title:      title,
			Artist:     "Artist",
			AppleURL:   appleURL,
			SpotifyURL: spotifyURL,
		},
	}
}

func TestAssembler_ResolveAllPreservesOrder(t *testing.T) {
	resolver := &stubResolver{
		rows: map[string]core.ResolvedSong{
			"A": resolvedRow("A", "https://music.apple.com/us/album/a/1?i=11", ""),
			"B": resolvedRow("B", "https://music.apple.com/us/album/b/2?i=22", ""),
			"C": resolvedRow("C", "https://music.apple.com/us/album/c/3?i=33", ""),
		},
		delay: time.Millisecond,
	}
	a := NewAssembler(resolver, nil, 3, "apple", zap.NewNop())

	queries := []core.SongQuery{{Title: "C"}, {Title: "A"}, {Title: "B"}}
	rows, err := a.ResolveAll(context.Background(), queries)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for i, want := range []string{"C", "A", "B"} {
		if rows[i].Metadata.Title != want {
			t.Errorf("rows[%d].Title = %q, want %q", i, rows[i].Metadata.Title, want)
		}
	}
}

func TestAssembler_BuildDeckKeepsPlaceholders(t *testing.T) {
	a := NewAssembler(nil, nil, 1, "apple", zap.NewNop())

	rows := []core.ResolvedSong{
		resolvedRow("A", "https://music.apple.com/us/album/a/1?i=11", ""),
		{
			Query:    core.SongQuery{Title: "Unknown Song", Artist: "Nobody"},
			Metadata: core.SongMetadata{Title: "Unknown Song", Artist: "Nobody"},
			Partial:  true,
			Err:      core.ErrMetadataLookup,
		},
		resolvedRow("B", "", "https://open.spotify.com/track/abc"),
	}

	deck, err := a.BuildDeck(rows)
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if len(deck.Cards) != 3 {
		t.Fatalf("len(Cards) = %d, want 3", len(deck.Cards))
	}
	if deck.Placeholders != 1 {
		t.Errorf("Placeholders = %d, want 1", deck.Placeholders)
	}
	if !deck.Cards[1].Placeholder() {
		t.Error("failed row should become a placeholder cell")
	}
	if deck.Cards[1].Song.Metadata.Title != "Unknown Song" {
		t.Errorf("placeholder keeps literal title, got %q", deck.Cards[1].Song.Metadata.Title)
	}
	// Apple preferred, Spotify fallback when Apple is missing.
	if got := deck.Cards[2].Link; got != "https://open.spotify.com/track/abc" {
		t.Errorf("Cards[2].Link = %q, want spotify fallback", got)
	}
}

func TestAssembler_BuildDeckPlatformPreference(t *testing.T) {
	row := resolvedRow("A",
		"https://music.apple.com/us/album/a/1?i=11",
		"https://open.spotify.com/track/abc")

	apple := NewAssembler(nil, nil, 1, "apple", zap.NewNop())
	deck, err := apple.BuildDeck([]core.ResolvedSong{row})
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if !strings.Contains(deck.Cards[0].Link, "music.apple.com") {
		t.Errorf("apple preference picked %q", deck.Cards[0].Link)
	}

	spotify := NewAssembler(nil, nil, 1, "spotify", zap.NewNop())
	deck, err = spotify.BuildDeck([]core.ResolvedSong{row})
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if !strings.Contains(deck.Cards[0].Link, "open.spotify.com") {
		t.Errorf("spotify preference picked %q", deck.Cards[0].Link)
	}
}

func TestAssembler_BuildDeckDropsDuplicates(t *testing.T) {
	dedup := store.NewDedupStore(100, 0.001)
	a := NewAssembler(nil, dedup, 1, "apple", zap.NewNop())

	link := "https://music.apple.com/us/album/a/1?i=11"
	rows := []core.ResolvedSong{
		resolvedRow("A", link, ""),
		resolvedRow("A again", link, ""),
		resolvedRow("B", "https://music.apple.com/us/album/b/2?i=22", ""),
	}

	deck, err := a.BuildDeck(rows)
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if len(deck.Cards) != 2 {
		t.Fatalf("len(Cards) = %d, want 2 after dedup", len(deck.Cards))
	}
	// First occurrence wins.
	if deck.Cards[0].Song.Metadata.Title != "A" {
		t.Errorf("Cards[0].Title = %q, want %q", deck.Cards[0].Song.Metadata.Title, "A")
	}
}

func TestAssembler_BuildDeckNothingResolvable(t *testing.T) {
	a := NewAssembler(nil, nil, 1, "apple", zap.NewNop())

	rows := []core.ResolvedSong{
		{Query: core.SongQuery{Title: "X"}, Partial: true, Err: core.ErrMetadataLookup},
	}

	if _, err := a.BuildDeck(rows); !errors.Is(err, core.ErrNothingResolvable) {
		t.Fatalf("BuildDeck() error = %v, want ErrNothingResolvable", err)
	}
}

// Rows that resolved clean metadata but have no store URL at all still
// produce a deck of placeholder cells rather than a fatal empty batch.
func TestAssembler_BuildDeckMetadataWithoutLinks(t *testing.T) {
	a := NewAssembler(nil, nil, 1, "apple", zap.NewNop())

	rows := []core.ResolvedSong{
		{
			Query: core.SongQuery{Title: "Giulio Cesare", Artist: "Pygmalion"},
			Metadata: core.SongMetadata{
				Title:    "Giulio Cesare in Egitto",
				Artist:   "Pygmalion",
				Composer: "George Frideric Handel",
			},
		},
	}

	deck, err := a.BuildDeck(rows)
	if err != nil {
		t.Fatalf("BuildDeck() error = %v", err)
	}
	if len(deck.Cards) != 1 || deck.Placeholders != 1 {
		t.Fatalf("Cards = %d, Placeholders = %d, want one placeholder cell", len(deck.Cards), deck.Placeholders)
	}
	if !deck.Cards[0].Placeholder() {
		t.Error("link-less row should render as a placeholder")
	}
}

func TestLayout_MirrorReversesColumns(t *testing.T) {
	deck := &Deck{Cards: []Card{
		{Link: "l0"}, {Link: "l1"}, {Link: "l2"},
		{Link: "l3"}, {Link: "l4"}, {Link: "l5"},
	}}

	sheets := Layout(deck, 2, 3, true)
	if len(sheets) != 1 {
		t.Fatalf("len(sheets) = %d, want 1", len(sheets))
	}

	sheet := sheets[0]
	if sheet.Back == nil {
		t.Fatal("mirrored layout should produce a back page")
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			front := sheet.Front[r*3+c]
			back := sheet.Back[r*3+(3-1-c)]
			if front.Link != back.Link {
				t.Errorf("cell (%d,%d): front %q, mirrored back %q", r, c, front.Link, back.Link)
			}
		}
	}
}

func TestLayout_NoMirrorSinglePage(t *testing.T) {
	deck := &Deck{Cards: []Card{{Link: "l0"}}}

	sheets := Layout(deck, 4, 3, false)
	if len(sheets) != 1 {
		t.Fatalf("len(sheets) = %d, want 1", len(sheets))
	}
	if sheets[0].Back != nil {
		t.Error("unmirrored layout should not produce a back page")
	}
	if sheets[0].Front[0].Link != "l0" {
		t.Errorf("Front[0].Link = %q", sheets[0].Front[0].Link)
	}
	// Remaining cells render blank.
	for i := 1; i < len(sheets[0].Front); i++ {
		if sheets[0].Front[i].Link != "" || sheets[0].Front[i].Song.Metadata.Title != "" {
			t.Errorf("cell %d should be blank", i)
		}
	}
}

func TestLayout_SingleCellMirrored(t *testing.T) {
	deck := &Deck{Cards: []Card{{Link: "only"}}}

	sheets := Layout(deck, 1, 1, true)
	if len(sheets) != 1 {
		t.Fatalf("len(sheets) = %d, want 1", len(sheets))
	}
	if sheets[0].Back[0].Link != sheets[0].Front[0].Link {
		t.Error("1x1 mirror should repeat the single cell")
	}
}

func TestLayout_OverflowSpansSheets(t *testing.T) {
	cards := make([]Card, 7)
	for i := range cards {
		cards[i] = Card{Link: string(rune('a' + i))}
	}
	deck := &Deck{Cards: cards}

	sheets := Layout(deck, 2, 3, false)
	if len(sheets) != 2 {
		t.Fatalf("len(sheets) = %d, want 2", len(sheets))
	}
	if sheets[1].Front[0].Link != "g" {
		t.Errorf("second sheet starts with %q, want %q", sheets[1].Front[0].Link, "g")
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []core.ResolvedSong{
		{
			Query: core.SongQuery{Title: "Bohemian Rhapsody", Artist: "Queen"},
			Metadata: core.SongMetadata{
				Title:    "Bohemian Rhapsody",
				Artist:   "Queen",
				Album:    "A Night at the Opera",
				Year:     "1975",
				Genre:    "Rock",
				AppleURL: "https://music.apple.com/us/album/x/1?i=2",
			},
		},
		{
			Query:    core.SongQuery{Title: "Unknown", Artist: "Nobody"},
			Metadata: core.SongMetadata{Title: "Unknown", Artist: "Nobody"},
			Partial:  true,
			Err:      core.ErrMetadataLookup,
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv line count = %d, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "query,title,artist") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1975") || !strings.HasSuffix(lines[1], "resolved") {
		t.Errorf("resolved row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "partial") {
		t.Errorf("partial row = %q", lines[2])
	}
}
