// Package youtube wraps the YouTube metadata client used by the local
// pipeline backend to resolve video titles. The remote provider returns a
// title in its own response, so only the pipeline path needs this probe.
package youtube

import (
	"context"
	"fmt"

	"github.com/kkdai/youtube/v2"
)

// Client abstracts YouTube metadata lookups.
type Client struct {
	client youtube.Client
}

// NewClient creates a new metadata client.
func NewClient() *Client {
	return &Client{client: youtube.Client{}}
}

// Title resolves the display title for a video ID.
func (c *Client) Title(ctx context.Context, videoID string) (string, error) {
	video, err := c.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to get video metadata: %w", err)
	}
	return video.Title, nil
}
