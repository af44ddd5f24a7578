package core

import (
	"errors"
)

var (
	// ErrNoPlayableLink marks a flashcard row with neither an Apple Music nor
	// a Spotify URL. The row stays in the output as a placeholder.
	ErrNoPlayableLink = errors.New("no playable link for row")

	// ErrMetadataLookup wraps per-row metadata source failures. It downgrades
	// the row to partial and never aborts the batch.
	ErrMetadataLookup = errors.New("metadata lookup failed")

	// ErrPlaybackUnavailable is surfaced at play time when a track has no
	// preview audio. It is not a classification error.
	ErrPlaybackUnavailable = errors.New("playback unavailable")

	// ErrNothingResolvable is the only fatal generate outcome: no input row
	// produced metadata or a link.
	ErrNothingResolvable = errors.New("no input resolvable")

	ErrInvalidGrid        = errors.New("rows and cols must be at least 1")
	ErrInvalidPlatform    = errors.New("platform must be apple or spotify")
	ErrInvalidMergeSource = errors.New("merge source must be itunes or musicbrainz")
)
