package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speakpanel/internal/speech/playback"
	"speakpanel/internal/speech/tts"
	"speakpanel/internal/speech/voice"
)

type recordingView struct {
	states []ViewState
	alerts []string
}

func (v *recordingView) Render(s ViewState) { v.states = append(v.states, s) }
func (v *recordingView) Alert(msg string)   { v.alerts = append(v.alerts, msg) }

func (v *recordingView) last() ViewState {
	if len(v.states) == 0 {
		return ViewState{}
	}
	return v.states[len(v.states)-1]
}

// runNow lists voices on the caller's goroutine so refreshes finish before
// RefreshVoices returns.
func runNow(fn func()) { fn() }

func testConfig() Config {
	return Config{
		Locale: "in",
		Rate:   NewSlider(0.1, 10, 0.1, 1),
		Pitch:  NewSlider(0, 2, 0.1, 1),
	}
}

func newTestPanel(t *testing.T, voices []voice.Voice) (*Panel, *tts.MockTTSEngine, *recordingView) {
	t.Helper()
	engine := tts.NewMockTTSEngine(tts.Config{})
	engine.SetVoices(voices)
	view := &recordingView{}
	p := New(engine, testConfig(), view, WithDispatcher(playback.Inline{}), WithSpawn(runNow))
	p.RefreshVoices(context.Background())
	return p, engine, view
}

func TestRefreshAutoSelectsLocaleMatch(t *testing.T) {
	p, _, view := newTestPanel(t, []voice.Voice{
		{Name: "Alpha", Lang: "en-US"},
		{Name: "Bindi", Lang: "hi-IN"},
		{Name: "Charlie", Lang: "en-GB", Default: true},
	})

	s := view.last()
	require.Len(t, s.Voices, 3)
	assert.Equal(t, "Bindi (hi-IN)", s.Voices[1].Label)
	assert.Equal(t, voice.Voice{Name: "Bindi", Lang: "hi-IN"}.Key(), s.SelectedVoice)
	assert.True(t, s.SpeakEnabled)
	assert.False(t, s.StopEnabled)
	assert.Empty(t, s.Placeholder)
	assert.Equal(t, p.State(), s)
}

func TestRefreshFallsBackToDefaultVoice(t *testing.T) {
	_, _, view := newTestPanel(t, []voice.Voice{
		{Name: "Alpha", Lang: "en-US", Default: true},
		{Name: "Delta", Lang: "fr-FR"},
	})

	assert.Equal(t, voice.Voice{Name: "Alpha", Lang: "en-US", Default: true}.Key(), view.last().SelectedVoice)
}

func TestRefreshWithoutMatchLeavesSelectionEmpty(t *testing.T) {
	_, _, view := newTestPanel(t, []voice.Voice{{Name: "Delta", Lang: "fr-FR"}})

	s := view.last()
	assert.Empty(t, s.SelectedVoice)
	assert.True(t, s.SpeakEnabled)
}

func TestRefreshKeepsManualChoiceWhenNothingAutoSelects(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Delta", Lang: "fr-FR"}, {Name: "Echo", Lang: "de-DE"}})
	echo := voice.Voice{Name: "Echo", Lang: "de-DE"}.Key()
	require.NoError(t, p.Handle(context.Background(), Event{Type: EventVoice, Value: echo}))

	engine.ChangeVoices([]voice.Voice{{Name: "Echo", Lang: "de-DE"}, {Name: "Foxtrot", Lang: "it-IT"}})
	p.RefreshVoices(context.Background())

	assert.Equal(t, echo, view.last().SelectedVoice)
}

func TestRefreshEmptyDisablesSpeak(t *testing.T) {
	p, engine, view := newTestPanel(t, nil)

	s := view.last()
	assert.False(t, s.SpeakEnabled)
	assert.Equal(t, NoVoicesPlaceholder, s.Placeholder)
	assert.Empty(t, s.Voices)

	require.NoError(t, p.Handle(context.Background(), Event{Type: EventText, Value: "hello"}))
	require.NoError(t, p.Handle(context.Background(), Event{Type: EventSpeak}))
	assert.Empty(t, engine.Submissions())
	assert.Equal(t, []string{NoVoicesPlaceholder}, view.alerts)

	engine.SetVoices([]voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})
	require.NoError(t, p.Handle(context.Background(), Event{Type: EventRefresh}))
	assert.True(t, view.last().SpeakEnabled)
}

func TestRefreshErrorKeepsPreviousList(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})

	engine.SetVoicesError(errors.New("engine unavailable"))
	p.RefreshVoices(context.Background())

	s := view.last()
	assert.Len(t, s.Voices, 1)
	assert.Contains(t, s.Status, "engine unavailable")
	assert.True(t, s.SpeakEnabled)
}

func TestSpeakLifecycleDrivesControls(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Event{Type: EventText, Value: "Hello world"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))

	s := view.last()
	assert.False(t, s.SpeakEnabled)
	assert.True(t, s.StopEnabled)
	assert.Equal(t, labelStarting, s.SpeakLabel)
	assert.Equal(t, "speaking", s.Playback)

	engine.FireStart()
	assert.Equal(t, labelSpeaking, view.last().SpeakLabel)

	engine.FireEnd()
	s = view.last()
	assert.True(t, s.SpeakEnabled)
	assert.False(t, s.StopEnabled)
	assert.Equal(t, labelSpeak, s.SpeakLabel)
	assert.Equal(t, playback.Idle, p.Playback())
}

func TestSpeakUsesSelection(t *testing.T) {
	p, engine, _ := newTestPanel(t, []voice.Voice{{Name: "Alpha", Lang: "en-US"}, {Name: "Bindi", Lang: "hi-IN"}})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Event{Type: EventAppend, Value: "line one"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventAppend, Value: "line two"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventRate, Value: "1.5"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventPitch, Value: "0.7"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))

	subs := engine.Submissions()
	require.Len(t, subs, 1)
	u := subs[0].Utterance
	assert.Equal(t, "line one\nline two", u.Text)
	require.NotNil(t, u.Voice)
	assert.Equal(t, "Bindi", u.Voice.Name)
	assert.Equal(t, 1.5, u.Rate)
	assert.Equal(t, 0.7, u.Pitch)
}

func TestEngineErrorSurfaced(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Event{Type: EventText, Value: "Hello"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))
	engine.FireError("interrupted")

	s := view.last()
	assert.Equal(t, "Error: interrupted", s.Status)
	assert.True(t, s.SpeakEnabled)
	assert.Equal(t, []string{"Speech failed: interrupted"}, view.alerts)

	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))
	assert.Empty(t, view.last().Status)
}

func TestBlankTextPrompts(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})
	before := len(view.states)

	require.NoError(t, p.Handle(context.Background(), Event{Type: EventText, Value: "   "}))
	require.NoError(t, p.Handle(context.Background(), Event{Type: EventSpeak}))

	assert.Empty(t, engine.Submissions())
	assert.Equal(t, []string{playback.PromptEmptyText}, view.alerts)
	assert.Equal(t, "idle", view.last().Playback)
	assert.Len(t, view.states, before+1) // only the text edit rendered
}

func TestStopWhileIdleIsSilent(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha"}})
	before := len(view.states)

	require.NoError(t, p.Handle(context.Background(), Event{Type: EventStop}))

	assert.Len(t, view.states, before)
	assert.Empty(t, view.alerts)
	assert.Equal(t, 0, engine.Cancels())
}

func TestStopWhileSpeaking(t *testing.T) {
	p, engine, view := newTestPanel(t, []voice.Voice{{Name: "Alpha"}})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Event{Type: EventText, Value: "Hello"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventStop}))

	assert.Equal(t, 1, engine.Cancels())
	assert.True(t, view.last().SpeakEnabled)
	assert.False(t, view.last().StopEnabled)
}

func TestReadoutsFollowSlidersWhileSpeaking(t *testing.T) {
	p, _, view := newTestPanel(t, []voice.Voice{{Name: "Alpha"}})
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Event{Type: EventText, Value: "Hello"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))

	for _, raw := range []string{"0.5", "2.3", "9.99", "42", "-1"} {
		require.NoError(t, p.Handle(ctx, Event{Type: EventRate, Value: raw}))
		s := view.last()
		assert.Equal(t, s.Rate.Readout, p.sel.Rate())
		assert.Equal(t, s.Rate.Readout, s.Rate.Slider.Readout())
		assert.Equal(t, "speaking", s.Playback)
	}
	assert.Equal(t, "0.1", view.last().Rate.Readout)

	require.NoError(t, p.Handle(ctx, Event{Type: EventPitch, Value: "1.7"}))
	assert.Equal(t, "1.7", view.last().Pitch.Readout)
}

func TestUnknownEvent(t *testing.T) {
	p, _, _ := newTestPanel(t, nil)
	assert.Error(t, p.Handle(context.Background(), Event{Type: "dance"}))
}

func TestVoicesChangedNotification(t *testing.T) {
	engine := tts.NewMockTTSEngine(tts.Config{})
	engine.SetVoices(nil)
	view := &recordingView{}
	p := New(engine, testConfig(), view, WithSpawn(runNow))
	engine.OnVoicesChanged(func() { p.RefreshVoices(context.Background()) })

	engine.ChangeVoices([]voice.Voice{{Name: "Bindi", Lang: "hi-IN"}})

	assert.Equal(t, voice.Voice{Name: "Bindi", Lang: "hi-IN"}.Key(), view.last().SelectedVoice)
}

// slowEngine holds the next Voices call until its gate is closed.
type slowEngine struct {
	*tts.MockTTSEngine

	mu    sync.Mutex
	gate  chan struct{}
	calls chan struct{}
}

func newSlowEngine() *slowEngine {
	return &slowEngine{
		MockTTSEngine: tts.NewMockTTSEngine(tts.Config{}),
		calls:         make(chan struct{}, 8),
	}
}

func (e *slowEngine) holdNext() chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = make(chan struct{})
	return e.gate
}

func (e *slowEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	voices, err := e.MockTTSEngine.Voices(ctx)

	e.mu.Lock()
	gate := e.gate
	e.gate = nil
	e.mu.Unlock()
	e.calls <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return voices, err
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
	}
}

func TestStopWhileVoiceListingIsPending(t *testing.T) {
	engine := newSlowEngine()
	view := &recordingView{}
	p := New(engine, testConfig(), view)
	ctx := context.Background()

	waitClosed(t, p.RefreshVoices(ctx))
	<-engine.calls
	require.NoError(t, p.Handle(ctx, Event{Type: EventText, Value: "Hello"}))
	require.NoError(t, p.Handle(ctx, Event{Type: EventSpeak}))
	require.Equal(t, playback.Speaking, p.Playback())

	gate := engine.holdNext()
	pending := p.RefreshVoices(ctx)
	<-engine.calls

	require.NoError(t, p.Handle(ctx, Event{Type: EventStop}))
	assert.Equal(t, playback.Idle, p.Playback())
	assert.Equal(t, 1, engine.Cancels())
	assert.True(t, view.last().SpeakEnabled)

	close(gate)
	waitClosed(t, pending)
	assert.Len(t, view.last().Voices, 3)
}

func TestSupersededVoiceListIsDropped(t *testing.T) {
	engine := newSlowEngine()
	engine.SetVoices([]voice.Voice{{Name: "Alpha", Lang: "en-US", Default: true}})
	view := &recordingView{}
	p := New(engine, testConfig(), view)
	ctx := context.Background()

	gate := engine.holdNext()
	stale := p.RefreshVoices(ctx)
	<-engine.calls

	engine.SetVoices([]voice.Voice{{Name: "Bindi", Lang: "hi-IN"}})
	waitClosed(t, p.RefreshVoices(ctx))
	<-engine.calls
	bindi := voice.Voice{Name: "Bindi", Lang: "hi-IN"}.Key()
	assert.Equal(t, bindi, view.last().SelectedVoice)

	close(gate)
	waitClosed(t, stale)

	s := view.last()
	require.Len(t, s.Voices, 1)
	assert.Equal(t, "Bindi", s.Voices[0].Name)
	assert.Equal(t, bindi, s.SelectedVoice)
}
