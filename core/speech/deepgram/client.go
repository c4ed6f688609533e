// Package deepgram streams microphone audio to Deepgram's live transcription
// API over a websocket and turns the results into capture sessions.
package deepgram

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voiceos-labs/voiceos-core/core/audio"
	"github.com/voiceos-labs/voiceos-core/core/speech"
)

const defaultListenURL = "wss://api.deepgram.com/v1/listen"

// AudioSource provides raw microphone audio. Stream blocks until the context
// is cancelled, invoking onAudio for every captured chunk.
type AudioSource interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	EncodingInfo() audio.EncodingInfo
}

type Client struct {
	source    AudioSource
	listenURL string

	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

type ClientOption func(*Client)

// WithListenURL overrides the websocket endpoint audio is streamed to.
func WithListenURL(listenURL string) ClientOption {
	return func(c *Client) {
		c.listenURL = listenURL
	}
}

func NewClient(source AudioSource, opts ...ClientOption) *Client {
	client := &Client{
		source:    source,
		listenURL: defaultListenURL,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CaptureUntilStopped records from the audio source until the context is
// cancelled, then returns everything that was transcribed during the session.
func (c *Client) CaptureUntilStopped(ctx context.Context, opts ...speech.CaptureOption) (string, error) {
	options := &speech.CaptureOptions{EncodingInfo: c.source.EncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	partsMu := sync.Mutex{}
	parts := []string{}
	utteranceCallback := options.TranscriptionCallback
	options.TranscriptionCallback = func(transcript string) {
		partsMu.Lock()
		parts = append(parts, transcript)
		partsMu.Unlock()
		if utteranceCallback != nil {
			utteranceCallback(transcript)
		}
	}

	if err := c.capture(ctx, options); err != nil {
		return "", err
	}

	partsMu.Lock()
	defer partsMu.Unlock()
	return strings.Join(parts, " "), nil
}

// ListenForWakeWord transcribes continuously and blocks until an utterance
// opens with one of the wake words, returning the command that follows it.
// Utterances without the wake-word prefix are discarded.
func (c *Client) ListenForWakeWord(ctx context.Context, wakeWords []string, opts ...speech.CaptureOption) (string, error) {
	options := &speech.CaptureOptions{EncodingInfo: c.source.EncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	command := make(chan string, 1)
	utteranceCallback := options.TranscriptionCallback
	options.TranscriptionCallback = func(transcript string) {
		if utteranceCallback != nil {
			utteranceCallback(transcript)
		}
		extracted, ok := speech.ExtractWakeCommand(transcript, wakeWords)
		if !ok || extracted == "" {
			return
		}
		select {
		case command <- extracted:
			cancel()
		default:
		}
	}

	if err := c.capture(listenCtx, options); err != nil {
		return "", err
	}

	select {
	case extracted := <-command:
		return extracted, nil
	default:
		return "", ctx.Err()
	}
}
