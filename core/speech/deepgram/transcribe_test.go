package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voiceos-labs/voiceos-core/core/audio"
	"github.com/voiceos-labs/voiceos-core/core/speech"
)

func TestCaptureUntilStoppedAccumulatesUtterances(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	server := newListenServer(t, "hello there", "how are you")
	client := NewClient(stubAudioSource{}, WithListenURL(websocketURL(server)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	utterances := make(chan string, 2)
	done := make(chan struct{})
	var transcript string
	var captureErr error
	go func() {
		defer close(done)
		transcript, captureErr = client.CaptureUntilStopped(ctx,
			speech.WithTranscriptionCallback(func(utterance string) {
				select {
				case utterances <- utterance:
				default:
				}
			}),
		)
	}()

	for received := 0; received < 2; received++ {
		select {
		case <-utterances:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for utterance %d", received+1)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for capture to finish")
	}

	if captureErr != nil {
		t.Fatalf("expected capture to succeed, got %v", captureErr)
	}
	if transcript != "hello there how are you" {
		t.Fatalf("expected accumulated transcript 'hello there how are you', got %q", transcript)
	}
}

func TestListenForWakeWordSkipsUnrelatedUtterances(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	server := newListenServer(t, "just thinking out loud", "VoiceOS open safari")
	client := NewClient(stubAudioSource{}, WithListenURL(websocketURL(server)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	command, err := client.ListenForWakeWord(ctx, []string{"voiceos"})
	if err != nil {
		t.Fatalf("expected listen to succeed, got %v", err)
	}
	if command != "open safari" {
		t.Fatalf("expected command 'open safari', got %q", command)
	}
}

func TestListenForWakeWordReturnsContextError(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	server := newListenServer(t)
	client := NewClient(stubAudioSource{}, WithListenURL(websocketURL(server)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := client.ListenForWakeWord(ctx, []string{"voiceos"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestCaptureUntilStoppedRejectsUnsupportedEncoding(t *testing.T) {
	client := NewClient(stubAudioSource{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := client.CaptureUntilStopped(ctx,
		speech.WithEncodingInfo(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16}),
	)
	if err == nil {
		t.Fatalf("expected unsupported sample rate to fail")
	}
}

// newListenServer scripts a transcription endpoint that sends one final
// result per utterance once the first audio chunk arrives, then answers
// CloseStream with a normal websocket closure.
func newListenServer(t *testing.T, utterances ...string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade websocket: %v", err)
			return
		}
		defer conn.Close()

		sentResults := atomic.Bool{}
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if msgType == websocket.BinaryMessage {
				if sentResults.CompareAndSwap(false, true) {
					for _, utterance := range utterances {
						if err := conn.WriteMessage(websocket.TextMessage, finalResult(utterance)); err != nil {
							t.Errorf("failed to write transcription result: %v", err)
							return
						}
					}
				}
				continue
			}

			var parsed struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsed); err != nil {
				continue
			}
			if parsed.Type == "CloseStream" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func finalResult(transcript string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":%q}]}}`,
		transcript))
}

func websocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type stubAudioSource struct{}

func (s stubAudioSource) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	onAudio(make([]byte, 320))
	<-ctx.Done()
	return nil
}

func (s stubAudioSource) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
