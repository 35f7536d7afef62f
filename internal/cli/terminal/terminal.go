// Package terminal is a line-oriented view of the speech panel.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"speakpanel/internal/cli/scheme/colours"
	"speakpanel/internal/panel"
)

const help = `  <text>          add a line to the text
  :speak  (:s)    speak the text
  :stop   (:x)    stop speaking
  :clear          clear the text
  :voice <n|name> pick a voice by list number or name
  :voices         show the voice list
  :rate <value>   set speaking rate
  :pitch <value>  set pitch
  :refresh        reload voices from the engine
  :help           show this help
  :quit   (:q)    leave`

// Terminal renders panel state as status lines and turns typed commands
// into panel events.
type Terminal struct {
	in  io.Reader
	out io.Writer

	mu       sync.Mutex
	last     panel.ViewState
	lastLine string
}

func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Render(s panel.ViewState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = s
	line := statusLine(s)
	if line == t.lastLine {
		return
	}
	t.lastLine = line

	switch {
	case strings.HasPrefix(s.Status, "Error"):
		colours.Error.Fprintln(t.out, line)
	case s.StopEnabled:
		colours.Success.Fprintln(t.out, line)
	default:
		colours.Info.Fprintln(t.out, line)
	}
}

func (t *Terminal) Alert(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	colours.Warning.Fprintf(t.out, "⚠️  %s\n", msg)
}

func statusLine(s panel.ViewState) string {
	state := "⏹️  idle"
	if s.StopEnabled {
		state = "🔊 " + s.SpeakLabel
	}

	voiceLabel := "engine default"
	if s.Placeholder != "" {
		voiceLabel = s.Placeholder
	} else if opt, ok := selected(s); ok {
		voiceLabel = opt.Label
	}

	line := fmt.Sprintf("%s | voice: %s | rate %s | pitch %s", state, voiceLabel, s.Rate.Readout, s.Pitch.Readout)
	if s.Status != "" {
		line += " | " + s.Status
	}
	return line
}

func selected(s panel.ViewState) (panel.VoiceOption, bool) {
	for _, o := range s.Voices {
		if o.Value == s.SelectedVoice {
			return o, true
		}
	}
	return panel.VoiceOption{}, false
}

// Run reads commands until EOF, :quit or ctx ends, passing each resulting
// event to post. When the input is an io.Closer it is closed on return so
// the reader goroutine is not left blocked in Scan.
func (t *Terminal) Run(ctx context.Context, post func(panel.Event)) error {
	if c, ok := t.in.(io.Closer); ok {
		defer c.Close()
	}

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			ev, quit, err := t.parse(line)
			if quit {
				return nil
			}
			if err != nil {
				t.mu.Lock()
				colours.Error.Fprintf(t.out, "❌ %v\n", err)
				t.mu.Unlock()
				continue
			}
			if ev.Type != "" {
				post(ev)
			}
		}
	}
}

func (t *Terminal) Welcome() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out)
	colours.Title.Fprintln(t.out, "🗣️  Speak Panel")
	colours.Prompt.Fprintln(t.out, "Type text to add it, then :speak.")
	fmt.Fprintln(t.out, help)
	fmt.Fprintln(t.out)
}

// parse turns one input line into an event. Commands that only affect the
// terminal itself produce an empty event.
func (t *Terminal) parse(line string) (panel.Event, bool, error) {
	if !strings.HasPrefix(line, ":") {
		if strings.TrimSpace(line) == "" {
			return panel.Event{}, false, nil
		}
		return panel.Event{Type: panel.EventAppend, Value: line}, false, nil
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "speak", "s":
		return panel.Event{Type: panel.EventSpeak}, false, nil
	case "stop", "x":
		return panel.Event{Type: panel.EventStop}, false, nil
	case "clear":
		return panel.Event{Type: panel.EventText}, false, nil
	case "rate":
		return panel.Event{Type: panel.EventRate, Value: arg}, false, requireArg(cmd, arg)
	case "pitch":
		return panel.Event{Type: panel.EventPitch, Value: arg}, false, requireArg(cmd, arg)
	case "voice":
		if err := requireArg(cmd, arg); err != nil {
			return panel.Event{}, false, err
		}
		value, err := t.resolveVoice(arg)
		return panel.Event{Type: panel.EventVoice, Value: value}, false, err
	case "voices":
		t.printVoices()
		return panel.Event{}, false, nil
	case "refresh":
		return panel.Event{Type: panel.EventRefresh}, false, nil
	case "help", "h":
		t.mu.Lock()
		fmt.Fprintln(t.out, help)
		t.mu.Unlock()
		return panel.Event{}, false, nil
	case "quit", "q":
		return panel.Event{}, true, nil
	}

	return panel.Event{}, false, fmt.Errorf("unknown command %q, try :help", cmd)
}

func requireArg(cmd, arg string) error {
	if arg == "" {
		return fmt.Errorf(":%s needs a value", cmd)
	}
	return nil
}

// resolveVoice maps a list number to the option value; anything else is
// passed through as a voice name.
func (t *Terminal) resolveVoice(arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.last.Voices) {
		return "", fmt.Errorf("no voice number %d", n)
	}
	return t.last.Voices[n-1].Value, nil
}

func (t *Terminal) printVoices() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last.Placeholder != "" || len(t.last.Voices) == 0 {
		colours.Warning.Fprintln(t.out, "🔍 "+panel.NoVoicesPlaceholder)
		return
	}

	for i, o := range t.last.Voices {
		marker := "  "
		if o.Value == t.last.SelectedVoice {
			marker = "▶ "
		}
		fmt.Fprintf(t.out, "%s%d. ", marker, i+1)
		colours.Voice.Fprint(t.out, o.Label)
		if o.Default {
			fmt.Fprint(t.out, " (default)")
		}
		fmt.Fprintln(t.out)
	}
}
