package media

import (
	"fmt"
	"regexp"
	"strings"
)

// youtubeURLRegex extracts the 11-character video ID from the common URL
// shapes (watch, embed, short links, attribution links).
var youtubeURLRegex = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/ ]{11})`)

// youtubeIDRegex matches a bare 11-character video ID.
var youtubeIDRegex = regexp.MustCompile(`^[^"&?/ ]{11}$`)

// ErrInvalidIdentifier is returned when a raw identifier is neither a
// recognizable YouTube URL nor a bare video ID.
var ErrInvalidIdentifier = fmt.Errorf("invalid youtube identifier")

// ParseVideoID canonicalizes a raw identifier to an 11-character video ID.
// Accepts full watch/embed/share URLs and bare IDs.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidIdentifier
	}

	if m := youtubeURLRegex.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	if youtubeIDRegex.MatchString(raw) {
		return raw, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
}

// YouTubeResolver canonicalizes raw client identifiers to video IDs so that
// every URL form of the same video shares one job.
type YouTubeResolver struct{}

// NewYouTubeResolver creates a new YouTubeResolver
func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{}
}

// Resolve returns the canonical video ID for a raw identifier
func (r *YouTubeResolver) Resolve(raw string) (string, error) {
	return ParseVideoID(raw)
}
