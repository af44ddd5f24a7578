// Package fuzzy normalizes track titles and artist names so results from
// different music catalogs can be compared for best-effort matching.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	remixRegex      = regexp.MustCompile(`(?i)\s*[\(\[]?\s*.*remix.*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(remaster|remastered|deluxe|extended|radio edit|live|mono|stereo).*[\)\]]?\s*`)
	bracketRegex    = regexp.MustCompile(`\(.*?\)`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " feat ", " feat. ")
	artist = strings.ReplaceAll(artist, " ft ", " ft. ")

	return artist
}

func (n *Normalizer) NormalizeTitle(title string) string {
	title = n.basicNormalize(title)

	title = featRegex.ReplaceAllString(title, "")
	title = remixRegex.ReplaceAllString(title, "")
	title = versionRegex.ReplaceAllString(title, "")

	return strings.TrimSpace(title)
}

// TitleVariants returns search variants for a title in decreasing fidelity:
// the literal form, the part after a "<composer>: " style prefix, and the
// bracket-stripped base form. Duplicates are dropped, order kept.
func (n *Normalizer) TitleVariants(title string) []string {
	title = strings.TrimSpace(strings.ReplaceAll(title, `"`, ""))
	variants := []string{title}

	if idx := strings.Index(title, ": "); idx > 0 {
		variants = append(variants, strings.TrimSpace(title[idx+2:]))
	}
	if base := strings.TrimSpace(bracketRegex.ReplaceAllString(title, "")); base != "" {
		variants = append(variants, base)
	}

	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, dup := seen[v]; dup || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SameRecording reports whether two catalog rows plausibly describe the same
// recording, using normalized-title and artist similarity against threshold.
func (n *Normalizer) SameRecording(titleA, artistA, titleB, artistB string, threshold float64) bool {
	titleScore := n.CalculateSimilarity(n.NormalizeTitle(titleA), n.NormalizeTitle(titleB))
	if titleScore < threshold {
		return false
	}
	if artistA == "" || artistB == "" {
		return true
	}
	return n.CalculateSimilarity(n.NormalizeArtist(artistA), n.NormalizeArtist(artistB)) >= threshold
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	return strings.TrimSpace(text)
}

func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	return float64(n.longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

func (n *Normalizer) longestCommonSubsequence(s1, s2 string) int {
	m, l := len(s1), len(s2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, l+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= l; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][l]
}
