// Package panel binds user controls to the voice registry and the playback
// controller, and keeps the visible state in step with playback.
package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"speakpanel/internal/speech/playback"
	"speakpanel/internal/speech/tts"
	"speakpanel/internal/speech/voice"
)

const (
	labelSpeak    = "Speak"
	labelStarting = "Starting…"
	labelSpeaking = "Speaking…"
)

type EventType string

const (
	EventText    EventType = "text"
	EventAppend  EventType = "append"
	EventVoice   EventType = "voice"
	EventRate    EventType = "rate"
	EventPitch   EventType = "pitch"
	EventSpeak   EventType = "speak"
	EventStop    EventType = "stop"
	EventRefresh EventType = "refresh"
)

// Event is one user interaction with the panel.
type Event struct {
	Type  EventType `json:"type"`
	Value string    `json:"value,omitempty"`
}

type Config struct {
	// Locale is matched against voice language tags when auto-selecting.
	Locale        string
	Rate          Slider
	Pitch         Slider
	VoicesTimeout time.Duration
}

// Recorder receives panel metrics.
type Recorder interface {
	playback.Recorder
	RecordRefresh(result string, voices int)
}

type Option func(*panelOptions)

type panelOptions struct {
	dispatch playback.Dispatcher
	metrics  Recorder
	spawn    func(func())
}

// WithDispatcher sets where engine callbacks and voice lists are delivered;
// it should be the same context the panel's events run on.
func WithDispatcher(d playback.Dispatcher) Option {
	return func(o *panelOptions) { o.dispatch = d }
}

// WithSpawn sets how voice listings are run off the dispatcher. The default
// starts a goroutine.
func WithSpawn(spawn func(func())) Option {
	return func(o *panelOptions) { o.spawn = spawn }
}

func WithRecorder(r Recorder) Option {
	return func(o *panelOptions) { o.metrics = r }
}

// Panel is the composition of selection state, voice registry and
// controller. Its methods must all run on the same dispatcher.
type Panel struct {
	cfg      Config
	engine   tts.Engine
	voices   *voice.Registry
	sel      *Selection
	ctrl     *playback.Controller
	view     View
	metrics  Recorder
	dispatch playback.Dispatcher
	spawn    func(func())
	log      *logrus.Entry

	voiceOpts   []VoiceOption
	placeholder bool
	status      string
	// refreshSeq identifies the newest voice listing; older ones are dropped.
	refreshSeq uint64
}

func New(engine tts.Engine, cfg Config, view View, opts ...Option) *Panel {
	o := panelOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatch == nil {
		o.dispatch = playback.Inline{}
	}
	if o.spawn == nil {
		o.spawn = func(fn func()) { go fn() }
	}

	if cfg.VoicesTimeout <= 0 {
		cfg.VoicesTimeout = 10 * time.Second
	}

	p := &Panel{
		cfg:      cfg,
		engine:   engine,
		voices:   voice.NewRegistry(),
		sel:      NewSelection(cfg.Rate, cfg.Pitch),
		view:     view,
		metrics:  o.metrics,
		dispatch: o.dispatch,
		spawn:    o.spawn,
		log:      logrus.WithField("component", "panel"),
		// nothing has been listed yet
		placeholder: true,
	}

	ctrlOpts := []playback.Option{playback.WithDispatcher(o.dispatch)}
	if o.metrics != nil {
		ctrlOpts = append(ctrlOpts, playback.WithRecorder(o.metrics))
	}
	p.ctrl = playback.NewController(engine, p.voices, p.sel, observer{p}, ctrlOpts...)
	return p
}

// Handle applies one user interaction.
func (p *Panel) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventText:
		p.sel.SetText(ev.Value)
	case EventAppend:
		if p.sel.Text() == "" {
			p.sel.SetText(ev.Value)
		} else {
			p.sel.SetText(p.sel.Text() + "\n" + ev.Value)
		}
	case EventVoice:
		p.sel.SetVoice(ev.Value)
	case EventRate:
		p.sel.SetRate(ev.Value)
	case EventPitch:
		p.sel.SetPitch(ev.Value)
	case EventSpeak:
		if p.placeholder {
			p.view.Alert(NoVoicesPlaceholder)
			return nil
		}
		p.ctrl.Speak(ctx)
		return nil
	case EventStop:
		p.ctrl.Stop()
		return nil
	case EventRefresh:
		p.RefreshVoices(ctx)
		return nil
	default:
		return fmt.Errorf("unknown panel event %q", ev.Type)
	}

	p.render()
	return nil
}

// RefreshVoices asks the engine for its voices without waiting for the
// answer. The list is applied on the dispatcher: the picker is repopulated
// and a voice is auto-selected for the configured locale. A listing that
// finishes after a newer one was started is dropped. The returned channel is
// closed once the answer has been applied or dropped.
func (p *Panel) RefreshVoices(ctx context.Context) <-chan struct{} {
	p.refreshSeq++
	seq := p.refreshSeq
	done := make(chan struct{})

	p.spawn(func() {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.VoicesTimeout)
		defer cancel()

		voices, err := p.engine.Voices(ctx)
		p.dispatch.Post(func() {
			defer close(done)
			p.applyVoices(seq, voices, err)
		})
	})
	return done
}

func (p *Panel) applyVoices(seq uint64, voices []voice.Voice, err error) {
	if seq != p.refreshSeq {
		p.log.WithField("refresh", seq).Debug("dropping superseded voice list")
		return
	}

	if err != nil {
		err = fmt.Errorf("failed to list voices: %w", err)
		p.log.WithError(err).Error("voice refresh failed")
		p.recordRefresh("error", p.voices.Len())
		p.status = "Could not load voices: " + err.Error()
		p.render()
		return
	}

	p.voices.Replace(voices)
	voices = p.voices.Voices()

	p.voiceOpts = optionsFor(voices)
	p.placeholder = len(voices) == 0
	if p.placeholder {
		p.sel.SetVoice("")
		p.recordRefresh("empty", 0)
		p.log.Warn("engine reported no voices")
		p.render()
		return
	}

	if v, ok := voice.AutoSelect(voices, p.cfg.Locale); ok {
		p.sel.SetVoice(v.Key())
	} else if _, ok := p.voices.Lookup(p.sel.VoiceID()); !ok {
		p.sel.SetVoice("")
	}

	p.recordRefresh("ok", len(voices))
	p.log.WithField("voices", len(voices)).Debug("voice list refreshed")
	p.render()
}

func (p *Panel) recordRefresh(result string, n int) {
	if p.metrics != nil {
		p.metrics.RecordRefresh(result, n)
	}
}

// State returns a snapshot of everything the views show.
func (p *Panel) State() ViewState {
	m := p.ctrl.Machine()

	s := ViewState{
		Text:          p.sel.Text(),
		Voices:        append([]VoiceOption(nil), p.voiceOpts...),
		SelectedVoice: p.sel.VoiceID(),
		Rate:          sliderState(p.sel.RateSlider()),
		Pitch:         sliderState(p.sel.PitchSlider()),
		SpeakEnabled:  !p.placeholder && m.State == playback.Idle,
		StopEnabled:   m.State == playback.Speaking,
		SpeakLabel:    labelSpeak,
		Status:        p.status,
		Playback:      m.State.String(),
	}
	if p.placeholder {
		s.Voices = nil
		s.Placeholder = NoVoicesPlaceholder
	}
	if m.State == playback.Speaking {
		s.SpeakLabel = labelStarting
		if m.Confirmed {
			s.SpeakLabel = labelSpeaking
		}
	}
	return s
}

// Playback exposes the controller's current state.
func (p *Panel) Playback() playback.State {
	return p.ctrl.State()
}

func (p *Panel) render() {
	p.view.Render(p.State())
}

// observer keeps the controller's transitions out of Panel's method set.
type observer struct {
	p *Panel
}

func (o observer) Submitted(playback.RequestID) {
	o.p.status = ""
	o.p.render()
}

func (o observer) Started(playback.RequestID) {
	o.p.render()
}

func (o observer) Finished(playback.RequestID) {
	o.p.render()
}

func (o observer) Stopped() {
	o.p.render()
}

func (o observer) Failed(reason string) {
	o.p.status = "Error: " + reason
	o.p.render()
	o.p.view.Alert("Speech failed: " + reason)
}

func (o observer) Prompt(msg string) {
	o.p.view.Alert(msg)
}
