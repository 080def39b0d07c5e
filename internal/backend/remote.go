package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// RemoteConfig configures the remote provider backend.
type RemoteConfig struct {
	// BaseURL of the provider, e.g. "https://youtube-mp36.p.rapidapi.com".
	BaseURL string

	// APIKey authenticates against the provider. Empty means the backend
	// is not usable and every conversion fails with ErrNotConfigured.
	APIKey string

	// APIHost is the provider host header value.
	APIHost string
}

// Remote converts videos by calling an external conversion provider over
// HTTPS. The provider resolves a video ID to a downloadable MP3 link plus a
// display title; the backend then fetches the linked bytes.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

// NewRemote creates a Remote backend.
func NewRemote(cfg RemoteConfig, logger *slog.Logger) *Remote {
	return &Remote{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger.With("backend", "remote"),
	}
}

// SetHTTPClient replaces the HTTP client, primarily for tests.
func (r *Remote) SetHTTPClient(c *http.Client) {
	r.client = c
}

// providerResponse is the subset of the provider's JSON body we rely on.
// Different provider versions have shipped the link under different names,
// so all three are accepted.
type providerResponse struct {
	Status      string `json:"status"`
	Msg         string `json:"msg"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

func (p *providerResponse) downloadLink() string {
	switch {
	case p.Link != "":
		return p.Link
	case p.URL != "":
		return p.URL
	default:
		return p.DownloadURL
	}
}

// Convert implements the Converter contract against the provider API.
// The attempt index is ignored: the provider call has no degradable knobs.
func (r *Remote) Convert(ctx context.Context, videoID string, attempt int, progress ProgressFunc) (*Result, error) {
	if r.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider API key is not set", ErrNotConfigured)
	}

	report(progress, ProgressBackendStarted)

	resp, err := r.callProvider(ctx, videoID)
	if err != nil {
		return nil, err
	}

	link := resp.downloadLink()
	if link == "" {
		return nil, fmt.Errorf("%w: provider response carries no download URL", ErrPermanent)
	}

	title := resp.Title
	if title == "" {
		title = "YouTube Audio"
	}

	report(progress, ProgressDownloadStarted)

	audio, err := r.fetchAudio(ctx, link)
	if err != nil {
		return nil, err
	}

	report(progress, ProgressArtifactRetrieved)

	r.logger.Debug("provider conversion complete",
		"video_id", videoID,
		"title", title,
		"audio_bytes", len(audio))

	return &Result{Audio: audio, Title: title}, nil
}

func (r *Remote) callProvider(ctx context.Context, videoID string) (*providerResponse, error) {
	url := fmt.Sprintf("%s/dl?id=%s", r.cfg.BaseURL, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building provider request: %v", ErrPermanent, err)
	}
	req.Header.Set("X-RapidAPI-Key", r.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", r.cfg.APIHost)
	req.Header.Set("User-Agent", defaultUserAgent)

	httpResp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: provider request failed: %v", ErrTransient, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if err := classifyStatus(httpResp.StatusCode, "provider"); err != nil {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("%w (body: %s)", err, string(body))
	}

	var resp providerResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: malformed provider response: %v", ErrPermanent, err)
	}

	if resp.Status == "fail" || resp.Status == "error" {
		msg := resp.Msg
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrPermanent, msg)
	}

	return &resp, nil
}

func (r *Remote) fetchAudio(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building download request: %v", ErrPermanent, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "audio/mpeg, audio/*")

	httpResp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: audio download failed: %v", ErrTransient, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if err := classifyStatus(httpResp.StatusCode, "download"); err != nil {
		return nil, err
	}

	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio body: %v", ErrTransient, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: provider served an empty artifact", ErrTransient)
	}

	return audio, nil
}

// classifyStatus maps an HTTP status to the error taxonomy. Rate limits and
// server-side failures are worth retrying; client-side rejections are not.
func classifyStatus(code int, stage string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s rate limited (status %d)", ErrTransient, stage, code)
	case code >= 500:
		return fmt.Errorf("%w: %s server error (status %d)", ErrTransient, stage, code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s access denied (status %d)", ErrPermanent, stage, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s content not found (status %d)", ErrPermanent, stage, code)
	default:
		return fmt.Errorf("%w: %s unexpected status %d", ErrPermanent, stage, code)
	}
}

func report(progress ProgressFunc, pct int) {
	if progress != nil {
		progress(pct)
	}
}
