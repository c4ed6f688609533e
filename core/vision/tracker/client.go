// Package tracker subscribes to the hand-landmark feed published over a
// websocket by the camera-tracking sidecar.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voiceos-labs/voiceos-core/core/vision"
)

const defaultFeedURL = "ws://127.0.0.1:8771/landmarks"

type Client struct {
	feedURL string
}

type ClientOption func(*Client)

// WithFeedURL overrides the websocket endpoint frames are read from.
func WithFeedURL(feedURL string) ClientOption {
	return func(c *Client) {
		c.feedURL = feedURL
	}
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{feedURL: defaultFeedURL}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Subscribe connects to the landmark feed and invokes onFrame for every
// frame until the context is cancelled or the feed closes.
func (c *Client) Subscribe(ctx context.Context, onFrame func(frame vision.Frame)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to landmark feed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		var frame vision.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("failed to read landmark frame: %w", err)
		}

		if frame.Timestamp.IsZero() {
			frame.Timestamp = time.Now()
		}
		onFrame(frame)
	}
}
