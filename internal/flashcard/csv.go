package flashcard

import (
	"encoding/csv"
	"fmt"
	"io"

	"flexster/internal/core"
)

var csvHeader = []string{
	"query", "title", "artist", "composer", "album", "year", "genre",
	"apple_url", "spotify_url", "status",
}

// WriteCSV exports the resolved rows, one line per input query, so a batch
// can be inspected or post-processed outside the PDF.
func WriteCSV(w io.Writer, rows []core.ResolvedSong) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, row := range rows {
		status := "resolved"
		if row.Partial {
			status = "partial"
		}
		record := []string{
			row.Query.String(),
			row.Metadata.Title,
			row.Metadata.Artist,
			row.Metadata.Composer,
			row.Metadata.Album,
			row.Metadata.Year,
			row.Metadata.Genre,
			row.Metadata.AppleURL,
			row.Metadata.SpotifyURL,
			status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
