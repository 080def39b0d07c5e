package domain

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidSourceURL is returned when a submitted URL does not look like a
// YouTube watch URL, or when no video ID can be extracted from it.
var ErrInvalidSourceURL = errors.New("invalid YouTube URL")

var (
	youtubeURLPattern = regexp.MustCompile(`^https?://(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]+`)
	videoIDPattern    = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([A-Za-z0-9_-]{11})`)
)

// IsValidSourceURL reports whether the given string is a well-formed YouTube
// watch URL (youtube.com/watch?v=... or youtu.be/... forms).
func IsValidSourceURL(url string) bool {
	return youtubeURLPattern.MatchString(url)
}

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL.
// Returns ErrInvalidSourceURL if the URL is malformed or carries no ID.
func ExtractVideoID(url string) (string, error) {
	if !IsValidSourceURL(url) {
		return "", ErrInvalidSourceURL
	}

	match := videoIDPattern.FindStringSubmatch(url)
	if match == nil {
		return "", ErrInvalidSourceURL
	}
	return match[1], nil
}

// CanonicalURL rewrites any accepted YouTube URL form to the canonical watch
// URL for its video ID, so equivalent URLs compare equal.
func CanonicalURL(url string) (string, error) {
	id, err := ExtractVideoID(url)
	if err != nil {
		return "", err
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}

// SanitizeTitle reduces an artifact title to a string that is safe to use as
// a download filename: word characters, spaces and hyphens only, spaces
// collapsed to underscores, capped at 50 characters.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('_')
		case r == '-':
			b.WriteRune('-')
		}
	}

	s := b.String()
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")

	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		s = "youtube_audio"
	}
	return s
}
