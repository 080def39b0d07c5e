package backend

// Profile tunes the local pipeline's download behavior. Later attempts of
// the same conversion run with a more conservative profile so that a
// throttled or flaky network path still has a chance of finishing.
type Profile struct {
	Name string

	// ConcurrentFragments is passed to the downloader; lower values are
	// gentler on rate-limited connections.
	ConcurrentFragments int

	// SocketTimeoutSeconds bounds each socket operation in the downloader.
	SocketTimeoutSeconds int

	// Retries is the downloader's own per-fragment retry count.
	Retries int
}

var profiles = []Profile{
	{Name: "aggressive", ConcurrentFragments: 8, SocketTimeoutSeconds: 20, Retries: 3},
	{Name: "balanced", ConcurrentFragments: 4, SocketTimeoutSeconds: 30, Retries: 5},
	{Name: "conservative", ConcurrentFragments: 2, SocketTimeoutSeconds: 60, Retries: 10},
}

// ProfileForAttempt maps a zero-based attempt index to a download profile.
// The first attempt runs balanced; every subsequent attempt degrades to
// conservative.
func ProfileForAttempt(attempt int) Profile {
	if attempt <= 0 {
		return profiles[1]
	}
	return profiles[2]
}
