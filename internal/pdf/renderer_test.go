package pdf

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"

	"flexster/internal/core"
	"flexster/internal/flashcard"
)

func testDeck() *flashcard.Deck {
	return &flashcard.Deck{
		Cards: []flashcard.Card{
			{
				Song: core.ResolvedSong{
					Query: core.SongQuery{Title: "Bohemian Rhapsody", Artist: "Queen"},
					Metadata: core.SongMetadata{
						Title:  "Bohemian Rhapsody",
						Artist: "Queen",
						Album:  "A Night at the Opera",
						Year:   "1975",
						Genre:  "Rock",
					},
				},
				Link: "https://music.apple.com/us/album/x/1?i=2",
			},
			{
				Song: core.ResolvedSong{
					Query:    core.SongQuery{Title: "Unknown", Artist: "Nobody"},
					Metadata: core.SongMetadata{Title: "Unknown", Artist: "Nobody"},
					Partial:  true,
				},
			},
		},
		Placeholders: 1,
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	sheets := flashcard.Layout(testDeck(), 4, 3, false)
	r := NewRenderer(4, 3, zap.NewNop())

	var buf bytes.Buffer
	if err := r.Render(&buf, sheets); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("output does not start with a PDF header")
	}
	if buf.Len() < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestRender_MirroredDoublesPages(t *testing.T) {
	r := NewRenderer(4, 3, zap.NewNop())

	var plain, mirrored bytes.Buffer
	if err := r.Render(&plain, flashcard.Layout(testDeck(), 4, 3, false)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := r.Render(&mirrored, flashcard.Layout(testDeck(), 4, 3, true)); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if plainPages, mirroredPages := countPages(plain.Bytes()), countPages(mirrored.Bytes()); mirroredPages != 2*plainPages {
		t.Errorf("page counts: plain %d, mirrored %d, want double", plainPages, mirroredPages)
	}
}

func countPages(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is far too long for a cell", 10, "this is f…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
