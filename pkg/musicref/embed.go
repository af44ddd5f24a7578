package musicref

import (
	"fmt"
	"net/url"
)

const (
	appleEmbedHost = "embed.music.apple.com"
	// iTunesLookupURL resolves a track ID to catalog data including the
	// preview audio URL. Preview absence is a play-time error, not ours.
	iTunesLookupURL = "https://itunes.apple.com/lookup"

	spotifyEmbedBaseURL = "https://open.spotify.com/embed"
)

// EmbedFor derives the playback target for a reference and mode. The mapping
// is pure: the same reference and mode always yield the same target.
// Combinations a platform cannot serve fail with ErrModeUnsupported;
// unclassified references fail with ErrUnrecognizedURL.
func EmbedFor(ref MusicReference, mode Mode) (EmbedTarget, error) {
	switch ref.Platform {
	case PlatformAppleMusic:
		return appleEmbed(ref, mode)
	case PlatformSpotify:
		return spotifyEmbed(ref, mode)
	default:
		return EmbedTarget{}, ErrUnrecognizedURL
	}
}

func appleEmbed(ref MusicReference, mode Mode) (EmbedTarget, error) {
	switch mode {
	case ModeFullEmbed:
		uri, err := appleEmbedURL(ref)
		if err != nil {
			return EmbedTarget{}, err
		}
		return EmbedTarget{Kind: EmbedIframe, URI: uri}, nil
	case ModePreview:
		if ref.TrackID == "" {
			return EmbedTarget{}, ErrModeUnsupported
		}
		uri := fmt.Sprintf("%s?id=%s&entity=song", iTunesLookupURL, url.QueryEscape(ref.TrackID))
		return EmbedTarget{Kind: EmbedPreviewAudio, URI: uri}, nil
	default:
		// MusicKit needs a paid developer token; no SDK mode for Apple.
		return EmbedTarget{}, ErrModeUnsupported
	}
}

// appleEmbedURL rewrites the original link to the embed player host,
// preserving the path and the song-level ?i= parameter.
func appleEmbedURL(ref MusicReference) (string, error) {
	u, err := url.Parse(ref.OriginalURL)
	if err != nil {
		return "", ErrUnrecognizedURL
	}

	embed := url.URL{
		Scheme: "https",
		Host:   appleEmbedHost,
		Path:   u.Path,
	}
	if id := u.Query().Get("i"); id != "" {
		q := url.Values{}
		q.Set("i", id)
		embed.RawQuery = q.Encode()
	}

	return embed.String(), nil
}

func spotifyEmbed(ref MusicReference, mode Mode) (EmbedTarget, error) {
	switch mode {
	case ModeFullEmbed:
		uri := fmt.Sprintf("%s/%s/%s", spotifyEmbedBaseURL, ref.Kind, ref.TrackID)
		return EmbedTarget{Kind: EmbedIframe, URI: uri}, nil
	case ModeSDK:
		uri := fmt.Sprintf("spotify:%s:%s", ref.Kind, ref.TrackID)
		return EmbedTarget{Kind: EmbedWebPlaybackSDK, URI: uri}, nil
	default:
		// Spotify's terms disallow unauthenticated preview playback.
		return EmbedTarget{}, ErrModeUnsupported
	}
}
