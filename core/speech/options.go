package speech

import "github.com/voiceos-labs/voiceos-core/core/audio"

type CaptureOptions struct {
	InterimTranscriptionCallback func(transcript string)
	TranscriptionCallback        func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type CaptureOption func(*CaptureOptions)

func WithTranscriptionCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) CaptureOption {
	return func(o *CaptureOptions) {
		o.EncodingInfo = encodingInfo
	}
}
