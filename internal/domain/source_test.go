package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidSourceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"standard watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"no www", "https://youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"short form", "https://youtu.be/dQw4w9WgXcQ", true},
		{"plain http", "http://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"empty", "", false},
		{"not a URL", "dQw4w9WgXcQ", false},
		{"other host", "https://vimeo.com/watch?v=dQw4w9WgXcQ", false},
		{"channel page", "https://www.youtube.com/@somechannel", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsValidSourceURL(tt.url))
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"short URL", "https://youtu.be/a1B2c3D4e5F", "a1B2c3D4e5F", false},
		{"with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"empty", "", "", true},
		{"wrong host", "https://example.com/watch?v=dQw4w9WgXcQ", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSourceURL)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	canonical := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"already canonical", canonical, canonical, false},
		{"short form", "https://youtu.be/dQw4w9WgXcQ", canonical, false},
		{"extra params stripped", canonical + "&t=42s&list=PL123", canonical, false},
		{"invalid", "https://vimeo.com/123", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CanonicalURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSourceURL)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Never Gonna Give You Up", "Never_Gonna_Give_You_Up"},
		{"special characters dropped", "Song! (Official Video) [HD]", "Song_Official_Video_HD"},
		{"empty falls back", "", "youtube_audio"},
		{"only symbols falls back", "!!!???", "youtube_audio"},
		{"hyphen kept", "lo-fi beats", "lo-fi_beats"},
		{"truncated to 50", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeTitle(tt.title))
		})
	}
}
