// Package tts is the boundary to the platform speech engines.
package tts

import (
	"context"
	"errors"

	"speakpanel/internal/speech/voice"
)

var (
	ErrUnsupportedEngine = errors.New("unsupported TTS engine")
	ErrEngineClosed      = errors.New("TTS engine closed")
)

type Config struct {
	Type string
	// Voice is used when an utterance doesn't name one.
	Voice string
	// DataPath overrides where espeak keeps its voice files.
	DataPath string
}

// Utterance is one speech request. A nil Voice means the engine default.
type Utterance struct {
	Text  string
	Voice *voice.Voice
	Rate  float64
	Pitch float64
}

// Callbacks receive the lifecycle of a submitted utterance. They may be
// invoked from any goroutine and must not block.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(reason string)
}

func (c Callbacks) start() {
	if c.OnStart != nil {
		c.OnStart()
	}
}

func (c Callbacks) end() {
	if c.OnEnd != nil {
		c.OnEnd()
	}
}

func (c Callbacks) fail(reason string) {
	if c.OnError != nil {
		c.OnError(reason)
	}
}

// Engine interface for text-to-speech functionality
type Engine interface {
	// Voices lists the voices the engine currently offers.
	Voices(ctx context.Context) ([]voice.Voice, error)
	// OnVoicesChanged registers fn to run whenever the voice list may have
	// changed. Engines that can't detect changes never call it.
	OnVoicesChanged(fn func())
	// Submit hands u to the engine and returns without waiting for speech.
	// A submitted utterance reports start followed by end or error, unless it
	// is cancelled, after which no further callback is guaranteed.
	Submit(ctx context.Context, u Utterance, cb Callbacks) error
	// Cancel stops the most recently submitted utterance, if still active.
	Cancel() error
	Close() error
}
