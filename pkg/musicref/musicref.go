// Package musicref classifies scanned text into music platform references and
// derives the playable embed target for a reference and playback mode.
package musicref

import (
	"errors"
)

// Platform identifies the music service a reference belongs to.
type Platform int

const (
	// PlatformUnknown means the input did not match any supported service.
	PlatformUnknown Platform = iota
	// PlatformAppleMusic covers music.apple.com links.
	PlatformAppleMusic
	// PlatformSpotify covers open.spotify.com links and spotify: URIs.
	PlatformSpotify
)

func (p Platform) String() string {
	switch p {
	case PlatformAppleMusic:
		return "apple_music"
	case PlatformSpotify:
		return "spotify"
	default:
		return "unknown"
	}
}

// Kind is the catalog entity level a reference points at.
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "track"
	}
}

// MusicReference is the immutable classification result for one scanned text.
type MusicReference struct {
	Platform    Platform
	TrackID     string
	Region      string
	Kind        Kind
	OriginalURL string
}

// Mode selects how a reference should be played back.
type Mode int

const (
	// ModeFullEmbed renders the vendor-hosted iframe player.
	ModeFullEmbed Mode = iota
	// ModePreview plays the ~30s unauthenticated preview clip.
	ModePreview
	// ModeSDK uses the Spotify Web Playback SDK (authenticated session).
	ModeSDK
)

// ParseMode maps the wire/flag form of a mode to its value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "embed", "full", "fullEmbed":
		return ModeFullEmbed, nil
	case "preview":
		return ModePreview, nil
	case "sdk":
		return ModeSDK, nil
	default:
		return ModeFullEmbed, ErrModeUnsupported
	}
}

func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModeSDK:
		return "sdk"
	default:
		return "embed"
	}
}

// EmbedKind is the playback mechanism of an EmbedTarget.
type EmbedKind int

const (
	// EmbedIframe is a vendor-hosted iframe src URL.
	EmbedIframe EmbedKind = iota
	// EmbedPreviewAudio is a catalog lookup key for a preview audio clip.
	EmbedPreviewAudio
	// EmbedWebPlaybackSDK is a Spotify URI for the Web Playback SDK.
	EmbedWebPlaybackSDK
)

func (k EmbedKind) String() string {
	switch k {
	case EmbedPreviewAudio:
		return "preview_audio"
	case EmbedWebPlaybackSDK:
		return "web_playback_sdk"
	default:
		return "iframe"
	}
}

// EmbedTarget is the playable derivation of a MusicReference for one Mode.
type EmbedTarget struct {
	Kind EmbedKind
	URI  string
}

var (
	// ErrUnrecognizedURL means the input is not a supported music link.
	// Callers surface it as a hint and must not attempt playback.
	ErrUnrecognizedURL = errors.New("not a supported music link")

	// ErrModeUnsupported means the requested playback mode is not available
	// for the reference's platform.
	ErrModeUnsupported = errors.New("playback mode not supported for platform")
)
