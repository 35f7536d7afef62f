package playback

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"speakpanel/internal/speech/tts"
	"speakpanel/internal/speech/voice"
)

// PromptEmptyText is shown when speak is triggered without any text.
const PromptEmptyText = "Please enter some text to speak."

const defaultLevel = 1.0

// Form is where the controller reads the current text and settings from at
// submit time. Rate and pitch are the raw control values.
type Form interface {
	Text() string
	VoiceID() string
	Rate() string
	Pitch() string
}

// Observer is told about every playback transition.
type Observer interface {
	Submitted(id RequestID)
	Started(id RequestID)
	Finished(id RequestID)
	Stopped()
	Failed(reason string)
	Prompt(msg string)
}

// Recorder counts utterance outcomes.
type Recorder interface {
	RecordUtterance(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUtterance(string) {}

type Option func(*Controller)

// WithDispatcher sets where engine callbacks are delivered. The default runs
// them inline on the engine's goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatch = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.metrics = r
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller submits utterances and keeps at most one of them active.
// It is not safe for concurrent use; call it from the dispatcher only.
type Controller struct {
	engine   tts.Engine
	voices   *voice.Registry
	form     Form
	observer Observer
	dispatch Dispatcher
	metrics  Recorder
	log      *logrus.Entry

	machine Machine
}

func NewController(engine tts.Engine, voices *voice.Registry, form Form, observer Observer, opts ...Option) *Controller {
	c := &Controller{
		engine:   engine,
		voices:   voices,
		form:     form,
		observer: observer,
		dispatch: Inline{},
		metrics:  nopRecorder{},
		log:      logrus.WithField("component", "playback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return c.machine.State
}

func (c *Controller) Machine() Machine {
	return c.machine
}

// Speak submits the form's text. An active utterance is stopped first.
func (c *Controller) Speak(ctx context.Context) {
	if c.machine.State == Speaking {
		c.Stop()
	}

	text := c.form.Text()
	if strings.TrimSpace(text) == "" {
		c.metrics.RecordUtterance("empty")
		c.observer.Prompt(PromptEmptyText)
		return
	}

	u := tts.Utterance{
		Text:  text,
		Rate:  parseLevel(c.form.Rate()),
		Pitch: parseLevel(c.form.Pitch()),
	}
	if v, ok := c.voices.Lookup(c.form.VoiceID()); ok {
		u.Voice = &v
	}

	id := xid.New()
	c.machine, _ = Transition(c.machine, Event{Kind: EventSubmit, ID: id})
	c.metrics.RecordUtterance("submitted")
	c.observer.Submitted(id)

	log := c.log.WithField("request", id.String())
	if u.Voice != nil {
		log = log.WithField("voice", u.Voice.Name)
	}
	log.WithFields(logrus.Fields{"rate": u.Rate, "pitch": u.Pitch}).Debug("submitting utterance")

	if err := c.engine.Submit(ctx, u, c.callbacks(id)); err != nil {
		c.apply(Event{Kind: EventError, ID: id, Reason: err.Error()})
	}
}

// Stop cancels the active utterance and returns to Idle without waiting
// for the engine. It does nothing while Idle.
func (c *Controller) Stop() {
	if c.machine.State != Speaking {
		return
	}

	if err := c.engine.Cancel(); err != nil {
		c.log.WithError(err).Warn("engine cancel failed")
	}

	c.machine, _ = Transition(c.machine, Event{Kind: EventCancel})
	c.metrics.RecordUtterance("cancelled")
	c.observer.Stopped()
}

func (c *Controller) callbacks(id RequestID) tts.Callbacks {
	return tts.Callbacks{
		OnStart: func() {
			c.dispatch.Post(func() { c.apply(Event{Kind: EventStart, ID: id}) })
		},
		OnEnd: func() {
			c.dispatch.Post(func() { c.apply(Event{Kind: EventEnd, ID: id}) })
		},
		OnError: func(reason string) {
			c.dispatch.Post(func() { c.apply(Event{Kind: EventError, ID: id, Reason: reason}) })
		},
	}
}

func (c *Controller) apply(e Event) {
	next, ok := Transition(c.machine, e)
	if !ok {
		c.metrics.RecordUtterance("stale")
		c.log.WithFields(logrus.Fields{"event": e.Kind.String(), "request": e.ID.String()}).Debug("ignoring stale engine event")
		return
	}
	c.machine = next

	switch e.Kind {
	case EventStart:
		c.metrics.RecordUtterance("started")
		c.observer.Started(e.ID)
	case EventEnd:
		c.metrics.RecordUtterance("ended")
		c.observer.Finished(e.ID)
	case EventError:
		c.metrics.RecordUtterance("failed")
		c.log.WithField("request", e.ID.String()).WithField("reason", e.Reason).Error("utterance failed")
		c.observer.Failed(e.Reason)
	}
}

// parseLevel reads a rate or pitch control value, falling back to 1.0.
func parseLevel(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return defaultLevel
	}
	return v
}
