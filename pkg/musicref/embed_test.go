package musicref

import (
	"errors"
	"strings"
	"testing"
)

func TestEmbedFor_AppleFullEmbed(t *testing.T) {
	ref, err := Classify("https://music.apple.com/de/album/rolling-in-the-deep/403037872?i=403037877")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	target, err := EmbedFor(ref, ModeFullEmbed)
	if err != nil {
		t.Fatalf("EmbedFor() error = %v", err)
	}

	if target.Kind != EmbedIframe {
		t.Errorf("Kind = %v, want iframe", target.Kind)
	}
	if !strings.HasPrefix(target.URI, "https://embed.music.apple.com/") {
		t.Errorf("URI = %q, want embed.music.apple.com host", target.URI)
	}
	if !strings.Contains(target.URI, "i=403037877") {
		t.Errorf("URI = %q, want preserved i= parameter", target.URI)
	}
}

// Reclassifying the fullEmbed iframe src must recover the same track ID.
func TestEmbedFor_AppleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{
			name: "Song-level link",
			url:  "https://music.apple.com/de/album/rolling-in-the-deep/403037872?i=403037877",
		},
		{
			name: "Album-level link",
			url:  "https://music.apple.com/us/album/21/403037872",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Classify(tt.url)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			target, err := EmbedFor(ref, ModeFullEmbed)
			if err != nil {
				t.Fatalf("EmbedFor() error = %v", err)
			}

			again, err := Classify(target.URI)
			if err != nil {
				t.Fatalf("Classify(embed URI) error = %v", err)
			}
			if again.TrackID != ref.TrackID {
				t.Errorf("round-trip TrackID = %q, want %q", again.TrackID, ref.TrackID)
			}
			if again.Platform != PlatformAppleMusic {
				t.Errorf("round-trip Platform = %v, want apple_music", again.Platform)
			}
		})
	}
}

func TestEmbedFor_ApplePreview(t *testing.T) {
	ref, err := Classify("https://music.apple.com/de/album/rolling-in-the-deep/403037872?i=403037877")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	target, err := EmbedFor(ref, ModePreview)
	if err != nil {
		t.Fatalf("EmbedFor() error = %v", err)
	}

	if target.Kind != EmbedPreviewAudio {
		t.Errorf("Kind = %v, want preview_audio", target.Kind)
	}
	want := "https://itunes.apple.com/lookup?id=403037877&entity=song"
	if target.URI != want {
		t.Errorf("URI = %q, want %q", target.URI, want)
	}
}

func TestEmbedFor_SpotifySDK(t *testing.T) {
	ref, err := Classify("https://open.spotify.com/track/1c8gk2PeTE05SrqaShtoRE")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	target, err := EmbedFor(ref, ModeSDK)
	if err != nil {
		t.Fatalf("EmbedFor() error = %v", err)
	}

	if target.Kind != EmbedWebPlaybackSDK {
		t.Errorf("Kind = %v, want web_playback_sdk", target.Kind)
	}
	if target.URI != "spotify:track:1c8gk2PeTE05SrqaShtoRE" {
		t.Errorf("URI = %q, want spotify:track:1c8gk2PeTE05SrqaShtoRE", target.URI)
	}
}

func TestEmbedFor_SpotifyFullEmbed(t *testing.T) {
	ref, err := Classify("https://open.spotify.com/album/1agBOK7odmzu3gaKIFbxJ2")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	target, err := EmbedFor(ref, ModeFullEmbed)
	if err != nil {
		t.Fatalf("EmbedFor() error = %v", err)
	}

	if target.Kind != EmbedIframe {
		t.Errorf("Kind = %v, want iframe", target.Kind)
	}
	if target.URI != "https://open.spotify.com/embed/album/1agBOK7odmzu3gaKIFbxJ2" {
		t.Errorf("URI = %q", target.URI)
	}
}

func TestEmbedFor_UnsupportedModes(t *testing.T) {
	apple, err := Classify("https://music.apple.com/us/song/test/123456")
	if err != nil {
		t.Fatalf("Classify(apple) error = %v", err)
	}
	spotify, err := Classify("spotify:track:1c8gk2PeTE05SrqaShtoRE")
	if err != nil {
		t.Fatalf("Classify(spotify) error = %v", err)
	}

	tests := []struct {
		name string
		ref  MusicReference
		mode Mode
	}{
		{name: "Spotify preview", ref: spotify, mode: ModePreview},
		{name: "Apple SDK", ref: apple, mode: ModeSDK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EmbedFor(tt.ref, tt.mode)
			if !errors.Is(err, ErrModeUnsupported) {
				t.Errorf("EmbedFor() error = %v, want ErrModeUnsupported", err)
			}
		})
	}
}

func TestEmbedFor_UnknownPlatform(t *testing.T) {
	_, err := EmbedFor(MusicReference{}, ModeFullEmbed)
	if !errors.Is(err, ErrUnrecognizedURL) {
		t.Errorf("EmbedFor() error = %v, want ErrUnrecognizedURL", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeFullEmbed},
		{in: "embed", want: ModeFullEmbed},
		{in: "preview", want: ModePreview},
		{in: "sdk", want: ModeSDK},
		{in: "shuffle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("mode "+tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrModeUnsupported) {
					t.Errorf("ParseMode(%q) error = %v, want ErrModeUnsupported", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
