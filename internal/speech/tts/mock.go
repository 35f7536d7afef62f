package tts

import (
	"context"
	"strings"
	"sync"
	"time"

	"speakpanel/internal/speech/voice"
)

// MockSubmission records one call to Submit.
type MockSubmission struct {
	Utterance Utterance
	Callbacks Callbacks
}

// MockTTSEngine is an in-process engine. With AutoPlay off it only records
// submissions and the caller drives the lifecycle through FireStart, FireEnd
// and FireError. With AutoPlay on it simulates reading time.
type MockTTSEngine struct {
	AutoPlay bool
	// WordsPerMinute at rate 1.0 when AutoPlay is on.
	WordsPerMinute float64

	mu          sync.Mutex
	voices      []voice.Voice
	voicesErr   error
	submitErr   error
	submissions []MockSubmission
	cancels     int
	timer       *time.Timer
	closed      bool
	changes     changeNotifier
}

func NewMockTTSEngine(c Config) *MockTTSEngine {
	return &MockTTSEngine{
		WordsPerMinute: 150,
		voices: []voice.Voice{
			{Name: "Mock Alpha", Lang: "en-US", Default: true},
			{Name: "Mock Bindi", Lang: "hi-IN"},
			{Name: "Mock Delta", Lang: "fr-FR"},
		},
	}
}

func (m *MockTTSEngine) Voices(context.Context) ([]voice.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.voicesErr != nil {
		return nil, m.voicesErr
	}
	out := make([]voice.Voice, len(m.voices))
	copy(out, m.voices)
	return out, nil
}

// SetVoices replaces the voice list without notifying listeners, the way a
// platform that never fires change events behaves.
func (m *MockTTSEngine) SetVoices(voices []voice.Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = voices
}

// ChangeVoices replaces the voice list and fires the change notification.
func (m *MockTTSEngine) ChangeVoices(voices []voice.Voice) {
	m.SetVoices(voices)
	m.changes.notify()
}

func (m *MockTTSEngine) SetVoicesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voicesErr = err
}

func (m *MockTTSEngine) SetSubmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
}

func (m *MockTTSEngine) OnVoicesChanged(fn func()) {
	m.changes.add(fn)
}

func (m *MockTTSEngine) Submit(_ context.Context, u Utterance, cb Callbacks) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrEngineClosed
	}
	if m.submitErr != nil {
		err := m.submitErr
		m.mu.Unlock()
		return err
	}
	m.submissions = append(m.submissions, MockSubmission{Utterance: u, Callbacks: cb})
	autoPlay := m.AutoPlay
	if autoPlay {
		m.stopTimer()
		m.timer = time.AfterFunc(m.readingTime(u), cb.end)
	}
	m.mu.Unlock()

	if autoPlay {
		cb.start()
	}
	return nil
}

func (m *MockTTSEngine) readingTime(u Utterance) time.Duration {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := float64(len(strings.Fields(u.Text)))
	return time.Duration(words / (m.WordsPerMinute * rate) * float64(time.Minute))
}

func (m *MockTTSEngine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *MockTTSEngine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	m.stopTimer()
	return nil
}

func (m *MockTTSEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimer()
	return nil
}

// Submissions returns every recorded submission in order.
func (m *MockTTSEngine) Submissions() []MockSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockSubmission, len(m.submissions))
	copy(out, m.submissions)
	return out
}

func (m *MockTTSEngine) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

func (m *MockTTSEngine) last() (MockSubmission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submissions) == 0 {
		return MockSubmission{}, false
	}
	return m.submissions[len(m.submissions)-1], true
}

// FireStart reports the latest submission as started.
func (m *MockTTSEngine) FireStart() {
	if s, ok := m.last(); ok {
		s.Callbacks.start()
	}
}

// FireEnd reports the latest submission as finished.
func (m *MockTTSEngine) FireEnd() {
	if s, ok := m.last(); ok {
		s.Callbacks.end()
	}
}

// FireError reports the latest submission as failed.
func (m *MockTTSEngine) FireError(reason string) {
	if s, ok := m.last(); ok {
		s.Callbacks.fail(reason)
	}
}
