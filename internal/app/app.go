// Package app wires the engine, panel and views behind the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"speakpanel/internal/cli/scheme/colours"
	"speakpanel/internal/cli/terminal"
	"speakpanel/internal/config"
	"speakpanel/internal/metrics"
	"speakpanel/internal/panel"
	"speakpanel/internal/speech/playback"
	"speakpanel/internal/speech/tts"
	"speakpanel/internal/speech/voice"
	"speakpanel/internal/web"
)

// SpeakPanel is the main application structure.
type SpeakPanel struct {
	cfg     *config.Config
	Tts     tts.Engine
	loop    *playback.Loop
	metrics *metrics.Metrics
	log     *logrus.Entry

	in  io.Reader
	out io.Writer

	ctx    context.Context
	Cancel context.CancelFunc
}

func New(cfg *config.Config, engine tts.Engine, in io.Reader, out io.Writer) *SpeakPanel {
	ctx, cancel := context.WithCancel(context.Background())
	return &SpeakPanel{
		cfg:     cfg,
		Tts:     engine,
		loop:    playback.NewLoop(),
		metrics: metrics.New(),
		log:     logrus.WithField("component", "app"),
		in:      in,
		out:     out,
		ctx:     ctx,
		Cancel:  cancel,
	}
}

// NewEngine builds the engine named in the config.
func NewEngine(cfg *config.Config) (tts.Engine, error) {
	return tts.NewEngine(tts.Config{
		Type:     cfg.TTS.Type,
		Voice:    cfg.TTS.Voice,
		DataPath: cfg.TTS.DataPath,
	})
}

// Stop silences any speech and unblocks the running command.
func (sp *SpeakPanel) Stop() {
	if err := sp.Tts.Cancel(); err != nil {
		sp.log.WithError(err).Warn("failed to cancel speech")
	}
	sp.Cancel()
}

func (sp *SpeakPanel) Close() error {
	sp.Cancel()
	return sp.Tts.Close()
}

func panelConfig(c config.TTS) panel.Config {
	return panel.Config{
		Locale:        c.Locale,
		Rate:          panel.NewSlider(c.Rate.Min, c.Rate.Max, c.Rate.Step, c.Rate.Value),
		Pitch:         panel.NewSlider(c.Pitch.Min, c.Pitch.Max, c.Pitch.Step, c.Pitch.Value),
		VoicesTimeout: c.VoicesTimeout,
	}
}

// startPanel builds a panel on the app's loop, starts the loop, subscribes to
// voice changes and starts the first voice listing. The returned channel is
// closed once that listing has been applied.
func (sp *SpeakPanel) startPanel(view panel.View) (*panel.Panel, <-chan struct{}) {
	p := panel.New(sp.Tts, panelConfig(sp.cfg.TTS), view,
		panel.WithDispatcher(sp.loop),
		panel.WithRecorder(sp.metrics),
	)

	go sp.loop.Run(sp.ctx)

	sp.Tts.OnVoicesChanged(func() {
		sp.loop.Post(func() { p.RefreshVoices(sp.ctx) })
	})

	listed := make(chan struct{})
	sp.loop.Post(func() {
		done := p.RefreshVoices(sp.ctx)
		go func() {
			select {
			case <-done:
				close(listed)
			case <-sp.ctx.Done():
			}
		}()
	})
	return p, listed
}

func (sp *SpeakPanel) post(p *panel.Panel, ev panel.Event) {
	sp.loop.Post(func() {
		if err := p.Handle(sp.ctx, ev); err != nil {
			sp.log.WithError(err).Warn("panel event rejected")
		}
	})
}

// RunTerminal runs the interactive terminal panel.
func (sp *SpeakPanel) RunTerminal(cmd *cobra.Command, args []string) error {
	term := terminal.New(sp.in, sp.out)
	term.Welcome()

	p, _ := sp.startPanel(term)
	err := term.Run(sp.ctx, func(ev panel.Event) { sp.post(p, ev) })

	// leave nothing speaking behind
	_ = sp.loop.Call(sp.ctx, func() { _ = p.Handle(sp.ctx, panel.Event{Type: panel.EventStop}) })
	return err
}

// Serve runs the browser panel until the app is cancelled.
func (sp *SpeakPanel) Serve(cmd *cobra.Command, args []string) error {
	hub := web.NewHub(sp.metrics)
	p, _ := sp.startPanel(hub)

	srv := web.NewServer(p, sp.loop, hub, sp.metrics.Handler())
	addr := sp.cfg.Web.Addr
	colours.Success.Fprintf(sp.out, "🌐 Speak panel ready at http://%s\n", addr)
	fmt.Fprintln(sp.out, "💡 Press Ctrl+C to stop")

	if err := srv.ListenAndServe(sp.ctx, addr); err != nil {
		return fmt.Errorf("failed to serve panel: %w", err)
	}
	return nil
}

// ListVoices prints the engine's voices and marks the one the panel would
// pick for the configured locale.
func (sp *SpeakPanel) ListVoices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(sp.ctx, panelConfig(sp.cfg.TTS).VoicesTimeout)
	defer cancel()

	voices, err := voice.NewRegistry().Refresh(ctx, sp.Tts)
	if err != nil {
		return err
	}

	fmt.Fprintln(sp.out)
	colours.Title.Fprintln(sp.out, "🔍 Available voices")
	fmt.Fprintln(sp.out)

	if len(voices) == 0 {
		colours.Warning.Fprintln(sp.out, panel.NoVoicesPlaceholder)
		return nil
	}

	chosen, ok := voice.AutoSelect(voices, sp.cfg.TTS.Locale)
	for i, v := range voices {
		marker := "  "
		if ok && v.Key() == chosen.Key() {
			marker = "▶ "
		}
		fmt.Fprintf(sp.out, "%s%d. ", marker, i+1)
		colours.Voice.Fprint(sp.out, v.Label())
		if v.Default {
			fmt.Fprint(sp.out, " (default)")
		}
		fmt.Fprintln(sp.out)
	}

	fmt.Fprintln(sp.out)
	if ok {
		colours.Info.Fprintf(sp.out, "Locale %q selects %s\n", sp.cfg.TTS.Locale, chosen.Label())
	} else {
		colours.Info.Fprintf(sp.out, "Locale %q selects no voice, the engine default is used\n", sp.cfg.TTS.Locale)
	}
	return nil
}

// Say speaks the arguments (or stdin when there are none) and waits for the
// engine to finish.
func (sp *SpeakPanel) Say(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		b, err := io.ReadAll(sp.in)
		if err != nil {
			return fmt.Errorf("failed to read text: %w", err)
		}
		text = string(b)
	}

	voiceName, _ := cmd.Flags().GetString("voice")

	view := newSayView()
	p, listed := sp.startPanel(view)

	// the voice flag is resolved against the listed voices
	select {
	case <-listed:
	case <-sp.ctx.Done():
		return nil
	}

	err := sp.loop.Call(sp.ctx, func() {
		if voiceName != "" {
			_ = p.Handle(sp.ctx, panel.Event{Type: panel.EventVoice, Value: voiceName})
		}
		_ = p.Handle(sp.ctx, panel.Event{Type: panel.EventText, Value: text})
		_ = p.Handle(sp.ctx, panel.Event{Type: panel.EventSpeak})
	})
	if err != nil {
		return err
	}

	colours.Success.Fprintln(sp.out, "🎵 Speaking... press Ctrl+C to stop")

	select {
	case <-view.done:
	case <-sp.ctx.Done():
		colours.Warning.Fprintln(sp.out, "⏹️  Stopped")
		return nil
	}

	if err := view.Err(); err != nil {
		return err
	}
	colours.Success.Fprintln(sp.out, "✅ Done")
	return nil
}

// ListEngines prints the engines usable on this platform.
func ListEngines(w io.Writer) {
	fmt.Fprintln(w)
	colours.Title.Fprintln(w, "🔧 Available engines")
	for _, e := range tts.GetAvailableEngines() {
		fmt.Fprintf(w, "  • %s\n", e)
	}
}

// sayView waits for one utterance to run its course.
type sayView struct {
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	started bool
	err     error
}

func newSayView() *sayView {
	return &sayView{done: make(chan struct{})}
}

func (v *sayView) Render(s panel.ViewState) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Playback == playback.Speaking.String() {
		v.started = true
		return
	}
	if !v.started {
		return
	}
	if strings.HasPrefix(s.Status, "Error") {
		v.err = errors.New(s.Status)
	}
	v.finish()
}

func (v *sayView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// failures after the start are already reported by Render
	if v.started {
		return
	}
	v.err = errors.New(msg)
	v.finish()
}

func (v *sayView) finish() {
	v.once.Do(func() { close(v.done) })
}

func (v *sayView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
