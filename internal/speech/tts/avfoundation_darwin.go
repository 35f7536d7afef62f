//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"

	"speakpanel/internal/speech/voice"
)

// AVFoundationEngine speaks through the macOS `say` command.
type AVFoundationEngine struct {
	config  Config
	proc    procRunner
	changes changeNotifier
}

func newAVFoundationEngine(config Config) (Engine, error) {
	if _, err := exec.LookPath("say"); err != nil {
		return nil, fmt.Errorf("say command not found: %w", err)
	}
	return &AVFoundationEngine{config: config}, nil
}

func (av *AVFoundationEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	output, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list say voices: %w", err)
	}
	return parseSayVoices(string(output)), nil
}

func (av *AVFoundationEngine) OnVoicesChanged(fn func()) {
	av.changes.add(fn)
}

func (av *AVFoundationEngine) Submit(_ context.Context, u Utterance, cb Callbacks) error {
	return av.proc.start("say", sayArgs(u, av.config.Voice), sayText(u), cb)
}

func (av *AVFoundationEngine) Cancel() error {
	return av.proc.cancel()
}

func (av *AVFoundationEngine) Close() error {
	return av.proc.cancel()
}
