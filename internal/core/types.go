package core

import (
	"strings"
)

// SongQuery is one user-supplied input row, parsed from a line of the input
// file. Artist is optional; bare titles are searched as-is.
type SongQuery struct {
	Title  string
	Artist string
}

// ParseQuery splits an input line of the form "<title> by <artist>" into a
// SongQuery. Lines without a " by " separator become title-only queries.
func ParseQuery(line string) SongQuery {
	line = strings.TrimSpace(line)

	if idx := strings.LastIndex(strings.ToLower(line), " by "); idx > 0 {
		title := strings.TrimSpace(line[:idx])
		artist := strings.TrimSpace(line[idx+len(" by "):])
		if title != "" && artist != "" {
			return SongQuery{Title: title, Artist: artist}
		}
	}

	return SongQuery{Title: line}
}

// String reconstructs the free-text search term for this query.
func (q SongQuery) String() string {
	if q.Artist == "" {
		return q.Title
	}
	return q.Title + " " + q.Artist
}

// SongMetadata is the merged result of the metadata sources for one query.
type SongMetadata struct {
	Title      string
	Artist     string
	Composer   string
	Album      string
	Year       string
	Genre      string
	CoverURL   string
	AppleURL   string
	SpotifyURL string
}

// ResolvedSong is the total (never-aborting) outcome of resolving one
// SongQuery. Partial rows keep the literal query fields in Metadata and carry
// the lookup error for logging; batch assembly treats them as placeholders.
type ResolvedSong struct {
	Query    SongQuery
	Metadata SongMetadata
	Partial  bool
	Err      error
}

// Link returns the canonical URL to encode for this row, preferring the given
// platform and falling back to the other. Empty means no playable link.
func (r ResolvedSong) Link(preferred string) string {
	if preferred == "spotify" {
		if r.Metadata.SpotifyURL != "" {
			return r.Metadata.SpotifyURL
		}
		return r.Metadata.AppleURL
	}
	if r.Metadata.AppleURL != "" {
		return r.Metadata.AppleURL
	}
	return r.Metadata.SpotifyURL
}

// CatalogHit is one candidate row returned by a metadata source search,
// handed to the disambiguator when a query matches several catalog entries.
type CatalogHit struct {
	Title  string
	Artist string
	Album  string
	Year   string
}
