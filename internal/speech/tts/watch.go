package tts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// voiceWatcher fires onChange when files under the watched voice
// directories are added, removed or renamed.
type voiceWatcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

func newVoiceWatcher(dirs []string, onChange func()) (*voiceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := w.Add(dir); err != nil {
			logrus.WithError(err).WithField("dir", dir).Debug("cannot watch voice directory")
			continue
		}
		watched++
	}

	if watched == 0 {
		w.Close()
		return nil, fmt.Errorf("no voice directory found in %v", dirs)
	}

	vw := &voiceWatcher{w: w, done: make(chan struct{})}
	go vw.loop(onChange)
	return vw, nil
}

func (vw *voiceWatcher) loop(onChange func()) {
	defer close(vw.done)
	for {
		select {
		case ev, ok := <-vw.w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				onChange()
			}
		case err, ok := <-vw.w.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("voice watcher error")
		}
	}
}

func (vw *voiceWatcher) Close() {
	vw.w.Close()
	<-vw.done
}

func espeakVoiceDirs(override string) []string {
	var roots []string
	if override != "" {
		roots = append(roots, override)
	}
	if env := os.Getenv("ESPEAK_DATA_PATH"); env != "" {
		roots = append(roots, filepath.Join(env, "espeak-ng-data"), env)
	}
	roots = append(roots,
		"/usr/share/espeak-ng-data",
		"/usr/lib/x86_64-linux-gnu/espeak-ng-data",
		"/usr/lib/aarch64-linux-gnu/espeak-ng-data",
		"/opt/homebrew/share/espeak-ng-data",
		"/usr/share/espeak-data",
	)

	dirs := make([]string, 0, len(roots))
	for _, r := range roots {
		dirs = append(dirs, filepath.Join(r, "voices"))
	}
	return dirs
}
