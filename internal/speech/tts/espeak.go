// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"speakpanel/internal/speech/voice"
)

const (
	espeakBaseWPM     = 175
	espeakBasePitch   = 50
	espeakDefaultLang = "en"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	config  Config
	path    string
	proc    procRunner
	changes changeNotifier
	watcher *voiceWatcher
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	engine := &ESpeakEngine{
		config: config,
		path:   espeakPath,
	}

	w, err := newVoiceWatcher(espeakVoiceDirs(config.DataPath), engine.changes.notify)
	if err != nil {
		logrus.WithError(err).Debug("eSpeak voice directory not watched")
	} else {
		engine.watcher = w
	}

	return engine, nil
}

func findESpeakExecutable() (string, error) {
	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list eSpeak voices: %w", err)
	}

	return parseESpeakVoices(string(output)), nil
}

func (e *ESpeakEngine) OnVoicesChanged(fn func()) {
	e.changes.add(fn)
}

func (e *ESpeakEngine) Submit(_ context.Context, u Utterance, cb Callbacks) error {
	return e.proc.start(e.path, e.args(u), u.Text, cb)
}

func (e *ESpeakEngine) args(u Utterance) []string {
	args := []string{"--stdin"}

	switch {
	case u.Voice != nil && u.Voice.Lang != "":
		args = append(args, "-v", u.Voice.Lang)
	case u.Voice != nil:
		args = append(args, "-v", u.Voice.Name)
	case e.config.Voice != "" && e.config.Voice != "default":
		args = append(args, "-v", e.config.Voice)
	}

	// words per minute, eSpeak accepts 80-450
	wpm := int(espeakBaseWPM * u.Rate)
	args = append(args, "-s", strconv.Itoa(clampInt(wpm, 80, 450)))

	// pitch 0-99, default 50
	pitch := int(espeakBasePitch * u.Pitch)
	args = append(args, "-p", strconv.Itoa(clampInt(pitch, 0, 99)))

	return args
}

func (e *ESpeakEngine) Cancel() error {
	return e.proc.cancel()
}

func (e *ESpeakEngine) Close() error {
	if e.watcher != nil {
		e.watcher.Close()
	}
	return e.proc.cancel()
}

// parseESpeakVoices reads the table printed by `espeak --voices`:
//
//	Pty Language Age/Gender VoiceName File Other Languages
func parseESpeakVoices(output string) []voice.Voice {
	lines := strings.Split(output, "\n")
	voices := make([]voice.Voice, 0, len(lines))

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		voices = append(voices, voice.Voice{
			Name:    strings.ReplaceAll(fields[3], "_", " "),
			Lang:    fields[1],
			Default: fields[1] == espeakDefaultLang,
		})
	}

	return voices
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
