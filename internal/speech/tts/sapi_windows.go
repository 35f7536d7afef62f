//go:build windows

package tts

import (
	"context"
	"fmt"
	"os/exec"

	"speakpanel/internal/speech/voice"
)

// SAPIEngine drives the Windows speech API through PowerShell.
type SAPIEngine struct {
	config  Config
	proc    procRunner
	changes changeNotifier
}

func newSAPIEngine(config Config) (Engine, error) {
	if _, err := exec.LookPath("powershell"); err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}
	return &SAPIEngine{config: config}, nil
}

func (s *SAPIEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	output, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", sapiListScript).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list SAPI voices: %w", err)
	}
	return parseSAPIVoices(string(output)), nil
}

func (s *SAPIEngine) OnVoicesChanged(fn func()) {
	s.changes.add(fn)
}

func (s *SAPIEngine) Submit(_ context.Context, u Utterance, cb Callbacks) error {
	script := sapiSpeakScript(u, s.config.Voice)
	return s.proc.start("powershell", []string{"-NoProfile", "-Command", script}, u.Text, cb)
}

func (s *SAPIEngine) Cancel() error {
	return s.proc.cancel()
}

func (s *SAPIEngine) Close() error {
	return s.proc.cancel()
}
