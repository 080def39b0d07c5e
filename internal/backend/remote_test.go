package backend_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetone/tubetone-api/internal/backend"
)

func newTestRemote(t *testing.T, providerHandler http.HandlerFunc) (*backend.Remote, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(providerHandler)
	t.Cleanup(srv.Close)

	remote := backend.NewRemote(backend.RemoteConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		APIHost: "provider.test",
	}, slog.Default())
	remote.SetHTTPClient(srv.Client())

	return remote, srv
}

func TestRemote_ConvertSuccess(t *testing.T) {
	t.Parallel()

	audio := []byte("ID3fake-mp3-bytes")

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dl":
			assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
			assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
			assert.Equal(t, "provider.test", r.Header.Get("X-RapidAPI-Host"))
			fmt.Fprintf(w, `{"status":"ok","title":"Test Song","link":"%s"}`, "http://"+r.Host+"/audio.mp3")
		case "/audio.mp3":
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write(audio)
		default:
			http.NotFound(w, r)
		}
	})

	var reported []int
	result, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, func(pct int) {
		reported = append(reported, pct)
	})

	require.NoError(t, err)
	assert.Equal(t, "Test Song", result.Title)
	assert.Equal(t, audio, result.Audio)
	assert.Equal(t, []int{20, 60, 90}, reported)
}

func TestRemote_AcceptsAlternateLinkFields(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`{"status":"ok","title":"A","url":"%s"}`,
		`{"status":"ok","title":"A","download_url":"%s"}`,
	}

	for _, body := range bodies {
		tmpl := body
		remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/dl" {
				fmt.Fprintf(w, tmpl, "http://"+r.Host+"/a.mp3")
				return
			}
			_, _ = w.Write([]byte("bytes"))
		})

		result, err := remote.Convert(context.Background(), "abc12345678", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("bytes"), result.Audio)
	}
}

func TestRemote_MissingAPIKey(t *testing.T) {
	t.Parallel()

	remote := backend.NewRemote(backend.RemoteConfig{BaseURL: "http://unused"}, slog.Default())

	_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNotConfigured)
	assert.True(t, backend.IsPermanent(err))
}

func TestRemote_ProviderStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{name: "rate limited is transient", status: http.StatusTooManyRequests, wantTransient: true},
		{name: "server error is transient", status: http.StatusBadGateway, wantTransient: true},
		{name: "unauthorized is permanent", status: http.StatusUnauthorized, wantTransient: false},
		{name: "forbidden is permanent", status: http.StatusForbidden, wantTransient: false},
		{name: "not found is permanent", status: http.StatusNotFound, wantTransient: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, backend.IsTransient(err))
		})
	}
}

func TestRemote_ProviderReportsFailure(t *testing.T) {
	t.Parallel()

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"fail","msg":"video is restricted"}`)
	})

	_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrPermanent)
	assert.Contains(t, err.Error(), "video is restricted")
}

func TestRemote_NoDownloadLink(t *testing.T) {
	t.Parallel()

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","title":"Song"}`)
	})

	_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrPermanent)
}

func TestRemote_EmptyArtifactIsTransient(t *testing.T) {
	t.Parallel()

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dl" {
			fmt.Fprintf(w, `{"status":"ok","title":"Song","link":"%s"}`, "http://"+r.Host+"/a.mp3")
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.Error(t, err)
	assert.True(t, backend.IsTransient(err))
}

func TestRemote_MalformedResponse(t *testing.T) {
	t.Parallel()

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrPermanent)
}

func TestRemote_FallbackTitle(t *testing.T) {
	t.Parallel()

	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dl" {
			fmt.Fprintf(w, `{"status":"ok","link":"%s"}`, "http://"+r.Host+"/a.mp3")
			return
		}
		_, _ = w.Write([]byte("bytes"))
	})

	result, err := remote.Convert(context.Background(), "dQw4w9WgXcQ", 0, nil)

	require.NoError(t, err)
	assert.Equal(t, "YouTube Audio", result.Title)
}
