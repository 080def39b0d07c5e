// Package backend defines the conversion contract and its two
// implementations: a remote conversion provider reached over HTTPS, and a
// local subprocess pipeline (yt-dlp feeding ffmpeg through a byte pipe).
//
// Exactly one backend is selected per deployment. Both are unreliable
// external collaborators, so the package also carries the error taxonomy
// (transient vs permanent) and the retry policy that wraps every
// conversion attempt.
package backend

import "context"

// Progress checkpoints reported during a conversion. Checkpoints are
// advisory, for polling clients only, and are never used for correctness
// decisions.
const (
	ProgressDispatched        = 10
	ProgressBackendStarted    = 20
	ProgressDownloadStarted   = 60
	ProgressArtifactRetrieved = 90
	ProgressDone              = 100
)

// Result is a successfully produced audio artifact.
type Result struct {
	// Audio is the raw encoded MP3 payload.
	Audio []byte

	// Title is the human-readable label for the artifact.
	Title string
}

// ProgressFunc receives advisory progress percentages (0-100) while a
// conversion runs. Implementations must tolerate a nil func.
type ProgressFunc func(pct int)

// Converter turns a YouTube video ID into an audio artifact.
//
// attempt is zero-based and increments across retries of the same
// conversion; implementations may use it to fall back toward a more
// conservative configuration. Errors are classified with ErrTransient /
// ErrPermanent / ErrNotConfigured so the retry policy can decide whether
// another attempt is worthwhile.
type Converter interface {
	Convert(ctx context.Context, videoID string, attempt int, progress ProgressFunc) (*Result, error)
}
