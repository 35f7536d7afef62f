package tts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// procRunner plays utterances through a child process, one at a time.
type procRunner struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// start launches the command and reports its lifecycle through cb.
// A process replaced or killed by cancel reports nothing further.
func (p *procRunner) start(name string, args []string, stdin string, cb Callbacks) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	p.mu.Lock()
	prev := p.cmd
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	p.cmd = cmd
	p.mu.Unlock()

	if prev != nil && prev.Process != nil {
		_ = prev.Process.Kill()
	}

	cb.start()

	go func() {
		err := cmd.Wait()

		p.mu.Lock()
		cancelled := p.cmd != cmd
		if !cancelled {
			p.cmd = nil
		}
		p.mu.Unlock()

		if cancelled {
			return
		}
		if err != nil {
			cb.fail(exitReason(err, stderr.String()))
			return
		}
		cb.end()
	}()

	return nil
}

func (p *procRunner) cancel() error {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func exitReason(err error, stderr string) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		if i := strings.IndexByte(msg, '\n'); i > 0 {
			msg = msg[:i]
		}
		return msg
	}
	return err.Error()
}

// changeNotifier fans out voices-changed notifications.
type changeNotifier struct {
	mu  sync.Mutex
	fns []func()
}

func (n *changeNotifier) add(fn func()) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fns = append(n.fns, fn)
}

func (n *changeNotifier) notify() {
	n.mu.Lock()
	fns := make([]func(), len(n.fns))
	copy(fns, n.fns)
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
