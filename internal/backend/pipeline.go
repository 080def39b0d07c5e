package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// TitleProber resolves a display title for a video ID. The pipeline backend
// needs one because the downloader subprocess emits bytes, not metadata.
type TitleProber interface {
	Title(ctx context.Context, videoID string) (string, error)
}

// PipelineConfig configures the local subprocess backend.
type PipelineConfig struct {
	// YtDlpPath is the downloader binary, usually "yt-dlp".
	YtDlpPath string

	// FfmpegPath is the encoder binary, usually "ffmpeg".
	FfmpegPath string
}

// Pipeline converts videos by running the downloader and encoder as local
// subprocesses joined by a byte pipe. No intermediate file ever touches
// disk; the encoded MP3 is collected from the encoder's stdout.
type Pipeline struct {
	cfg    PipelineConfig
	prober TitleProber
	logger *slog.Logger
}

// NewPipeline creates a Pipeline backend.
func NewPipeline(cfg PipelineConfig, prober TitleProber, logger *slog.Logger) *Pipeline {
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = "yt-dlp"
	}
	if cfg.FfmpegPath == "" {
		cfg.FfmpegPath = "ffmpeg"
	}
	return &Pipeline{
		cfg:    cfg,
		prober: prober,
		logger: logger.With("backend", "pipeline"),
	}
}

// downloadProgressRe matches the downloader's stderr progress lines, e.g.
// "[download]  42.7% of 3.52MiB at 1.2MiB/s".
var downloadProgressRe = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)

// Convert implements the Converter contract with a yt-dlp | ffmpeg pipe.
func (p *Pipeline) Convert(ctx context.Context, videoID string, attempt int, progress ProgressFunc) (*Result, error) {
	profile := ProfileForAttempt(attempt)

	report(progress, ProgressBackendStarted)

	p.logger.Info("starting conversion pipeline",
		"video_id", videoID,
		"profile", profile.Name,
		"concurrent_fragments", profile.ConcurrentFragments)

	title := p.probeTitle(ctx, videoID)

	audio, stderrTail, err := p.run(ctx, videoID, profile, progress)
	if err != nil {
		return nil, classifyPipelineError(err, stderrTail)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: pipeline produced no audio output", ErrTransient)
	}

	report(progress, ProgressArtifactRetrieved)

	p.logger.Info("pipeline conversion complete",
		"video_id", videoID,
		"title", title,
		"audio_bytes", len(audio))

	return &Result{Audio: audio, Title: title}, nil
}

// probeTitle asks the metadata client for the video title. Metadata is a
// nice-to-have; a probe failure falls back to a generic label rather than
// failing the conversion.
func (p *Pipeline) probeTitle(ctx context.Context, videoID string) string {
	if p.prober == nil {
		return "YouTube Audio"
	}
	title, err := p.prober.Title(ctx, videoID)
	if err != nil || strings.TrimSpace(title) == "" {
		p.logger.Warn("title probe failed, using fallback",
			"video_id", videoID,
			"error", err)
		return "YouTube Audio"
	}
	return title
}

func (p *Pipeline) run(ctx context.Context, videoID string, profile Profile, progress ProgressFunc) ([]byte, string, error) {
	sourceURL := "https://www.youtube.com/watch?v=" + videoID

	dl := exec.CommandContext(ctx, p.cfg.YtDlpPath,
		"-f", "bestaudio",
		"--concurrent-fragments", strconv.Itoa(profile.ConcurrentFragments),
		"--socket-timeout", strconv.Itoa(profile.SocketTimeoutSeconds),
		"--retries", strconv.Itoa(profile.Retries),
		"--no-playlist",
		"--quiet",
		"--progress",
		"--newline",
		"-o", "-",
		sourceURL,
	)

	enc := exec.CommandContext(ctx, p.cfg.FfmpegPath,
		"-i", "pipe:0",
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		"-f", "mp3",
		"pipe:1",
	)

	pipe, err := dl.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("wiring downloader stdout: %w", err)
	}
	enc.Stdin = pipe

	dlStderr, err := dl.StderrPipe()
	if err != nil {
		return nil, "", fmt.Errorf("wiring downloader stderr: %w", err)
	}

	var out bytes.Buffer
	var encStderr bytes.Buffer
	enc.Stdout = &out
	enc.Stderr = &encStderr

	if err := dl.Start(); err != nil {
		return nil, "", fmt.Errorf("starting downloader: %w", err)
	}
	if err := enc.Start(); err != nil {
		_ = dl.Process.Kill()
		_ = dl.Wait()
		return nil, "", fmt.Errorf("starting encoder: %w", err)
	}

	// Downloader progress occupies the 20-85 band; the encoder finishes
	// quickly once its input drains, so the remainder is reported after
	// both processes exit.
	var stderrTail string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stderrTail = p.scanDownloaderStderr(dlStderr, progress)
	}()

	// The scanner must drain stderr to EOF before Wait closes the pipe,
	// or the tail used for error classification is lost.
	wg.Wait()
	dlErr := dl.Wait()
	encErr := enc.Wait()

	if dlErr != nil {
		return nil, stderrTail, fmt.Errorf("downloader exited: %w", dlErr)
	}
	if encErr != nil {
		tail := lastLines(encStderr.String(), 5)
		return nil, tail, fmt.Errorf("encoder exited: %w", encErr)
	}
	if ctx.Err() != nil {
		return nil, stderrTail, ctx.Err()
	}

	return out.Bytes(), stderrTail, nil
}

// scanDownloaderStderr streams progress lines into the callback and keeps a
// short tail of output for error classification.
func (p *Pipeline) scanDownloaderStderr(r io.Reader, progress ProgressFunc) string {
	var tail []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		tail = append(tail, line)
		if len(tail) > 10 {
			tail = tail[1:]
		}
		if pct, ok := parseDownloadProgress(line); ok {
			report(progress, mapDownloadProgress(pct))
		}
	}
	return strings.Join(tail, "\n")
}

// parseDownloadProgress extracts the percentage from a downloader progress
// line, if the line carries one.
func parseDownloadProgress(line string) (float64, bool) {
	m := downloadProgressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// mapDownloadProgress scales the downloader's 0-100 into the 20-85 band the
// pipeline occupies between startup and artifact retrieval.
func mapDownloadProgress(pct float64) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return 20 + int(pct*0.65)
}

// classifyPipelineError inspects the subprocess failure and its stderr tail
// to decide whether another attempt is worthwhile. Unknown failures count
// as transient so that a degraded profile gets a chance.
func classifyPipelineError(err error, stderrTail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: pipeline cancelled: %v", ErrTransient, err)
	}

	lower := strings.ToLower(stderrTail)
	permanentMarkers := []string{
		"video unavailable",
		"private video",
		"this video is not available",
		"sign in to confirm your age",
		"age-restricted",
		"account associated with this video has been terminated",
		"copyright",
		"unsupported url",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermanent, firstLineContaining(stderrTail, marker))
		}
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: pipeline tool missing: %v", ErrNotConfigured, err)
	}

	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func firstLineContaining(s, marker string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(strings.ToLower(line), marker) {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(s)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
