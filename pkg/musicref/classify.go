package musicref

import (
	"net/url"
	"strings"
)

// classifier is one row of the platform rule table: a host predicate plus a
// track ID extractor. Rules are tried in order; the first whose host matches
// owns the input, so a matching host with a malformed path still fails as
// unrecognized rather than falling through to another platform.
type classifier struct {
	platform Platform
	match    func(u *url.URL) bool
	extract  func(u *url.URL) (MusicReference, bool)
}

var rules = []classifier{
	{platform: PlatformAppleMusic, match: isAppleMusicHost, extract: extractAppleMusic},
	{platform: PlatformSpotify, match: isSpotifyLink, extract: extractSpotify},
}

// Classify maps raw scanned or typed text to a MusicReference. The mapping is
// deterministic and side-effect free; anything outside the platform
// allow-list fails with ErrUnrecognizedURL.
func Classify(raw string) (MusicReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MusicReference{}, ErrUnrecognizedURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return MusicReference{}, ErrUnrecognizedURL
	}

	for _, rule := range rules {
		if !rule.match(u) {
			continue
		}
		ref, ok := rule.extract(u)
		if !ok {
			return MusicReference{}, ErrUnrecognizedURL
		}
		ref.Platform = rule.platform
		ref.OriginalURL = raw
		return ref, nil
	}

	return MusicReference{}, ErrUnrecognizedURL
}

// isAppleMusicHost accepts music.apple.com and any subdomain of it
// (embed.music.apple.com, beta.music.apple.com, ...).
func isAppleMusicHost(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "music.apple.com" || strings.HasSuffix(host, ".music.apple.com")
}

func extractAppleMusic(u *url.URL) (MusicReference, bool) {
	ref := MusicReference{Kind: KindAlbum}

	segments := splitPath(u.Path)
	if len(segments) > 0 {
		if region := strings.ToLower(segments[0]); isStorefront(region) {
			ref.Region = region
		}
	}

	// Song-level ID lives in the ?i= query parameter.
	if id := u.Query().Get("i"); id != "" {
		ref.TrackID = id
		ref.Kind = KindTrack
		return ref, true
	}

	// Direct song links (…/song/<name>/<id>) carry the ID as the last path
	// segment; album links end in a numeric collection ID.
	if len(segments) > 0 {
		last := segments[len(segments)-1]
		if isNumeric(strings.TrimPrefix(last, "id")) {
			ref.TrackID = strings.TrimPrefix(last, "id")
			for _, seg := range segments {
				if seg == "song" {
					ref.Kind = KindTrack
					break
				}
			}
			return ref, true
		}
	}

	return MusicReference{}, false
}

// isSpotifyLink accepts open.spotify.com URLs and spotify:<kind>:<id> URIs.
func isSpotifyLink(u *url.URL) bool {
	if strings.EqualFold(u.Scheme, "spotify") {
		return true
	}
	return strings.ToLower(u.Hostname()) == "open.spotify.com"
}

func extractSpotify(u *url.URL) (MusicReference, bool) {
	// URI form: spotify:track:<id> parses with an opaque part.
	if strings.EqualFold(u.Scheme, "spotify") {
		parts := strings.Split(u.Opaque, ":")
		if len(parts) != 2 {
			return MusicReference{}, false
		}
		kind, ok := spotifyKind(parts[0])
		if !ok || !isSpotifyID(parts[1]) {
			return MusicReference{}, false
		}
		return MusicReference{TrackID: parts[1], Kind: kind}, true
	}

	// URL form: the ID follows the track/album/playlist path segment, which
	// also covers /embed/track/<id> and locale-prefixed paths.
	segments := splitPath(u.Path)
	for i, seg := range segments {
		kind, ok := spotifyKind(seg)
		if !ok || i+1 >= len(segments) {
			continue
		}
		if id := segments[i+1]; isSpotifyID(id) {
			return MusicReference{TrackID: id, Kind: kind}, true
		}
	}

	return MusicReference{}, false
}

func spotifyKind(segment string) (Kind, bool) {
	switch segment {
	case "track":
		return KindTrack, true
	case "album":
		return KindAlbum, true
	case "playlist":
		return KindPlaylist, true
	default:
		return KindTrack, false
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// isStorefront reports whether a path segment looks like a two-letter Apple
// storefront code (us, de, gb, ...).
func isStorefront(segment string) bool {
	if len(segment) != 2 {
		return false
	}
	for _, r := range segment {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isSpotifyID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
