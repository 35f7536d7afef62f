package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"

	"speakpanel/internal/speech/voice"
)

const (
	googleDefaultVoice = "en-US-Standard-C"
	googleDefaultLang  = "en-US"
	// Cloud TTS pitch is in semitones, -20 to 20.
	googlePitchRange = 20.0
)

// GoogleClassicTTSEngine synthesizes MP3 with Cloud Text-to-Speech and plays
// it through the local speaker.
type GoogleClassicTTSEngine struct {
	client  *texttospeech.Client
	config  Config
	changes changeNotifier
	out     audioOut

	mu         sync.Mutex
	generation uint64
	cancelReq  context.CancelFunc
	sampleRate beep.SampleRate
	closed     bool
}

func newGoogleClassicTTSEngine(config Config) (*GoogleClassicTTSEngine, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	return &GoogleClassicTTSEngine{
		client: client,
		config: config,
		out:    beepSpeaker{},
	}, nil
}

// audioOut is the local speaker.
type audioOut interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
}

type beepSpeaker struct{}

func (beepSpeaker) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}

func (beepSpeaker) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (beepSpeaker) Clear()                  { speaker.Clear() }

func (g *GoogleClassicTTSEngine) Voices(ctx context.Context) ([]voice.Voice, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list Google voices: %w", err)
	}

	var voices []voice.Voice
	for _, v := range resp.Voices {
		for _, lang := range v.LanguageCodes {
			voices = append(voices, voice.Voice{
				Name:    v.Name,
				Lang:    lang,
				Default: v.Name == g.fallbackVoice(),
			})
		}
	}
	return voices, nil
}

func (g *GoogleClassicTTSEngine) fallbackVoice() string {
	if g.config.Voice != "" && g.config.Voice != "default" {
		return g.config.Voice
	}
	return googleDefaultVoice
}

func (g *GoogleClassicTTSEngine) OnVoicesChanged(fn func()) {
	g.changes.add(fn)
}

// Submit synthesizes in the background; start is reported once audio begins.
func (g *GoogleClassicTTSEngine) Submit(_ context.Context, u Utterance, cb Callbacks) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrEngineClosed
	}
	if g.cancelReq != nil {
		g.cancelReq()
	}
	g.generation++
	gen := g.generation
	ctx, cancel := context.WithCancel(context.Background())
	g.cancelReq = cancel
	g.mu.Unlock()

	go g.play(ctx, gen, u, cb)
	return nil
}

func (g *GoogleClassicTTSEngine) play(ctx context.Context, gen uint64, u Utterance, cb Callbacks) {
	audio, err := g.synthesize(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			cb.fail(err.Error())
		}
		return
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	if err != nil {
		cb.fail(fmt.Sprintf("failed to decode MP3: %v", err))
		return
	}

	g.queue(gen, format, streamer, cb)
}

// queue hands the stream to the speaker unless gen was cancelled. The check
// and Play happen under g.mu, so a Cancel either comes first and nothing is
// played, or comes after and clears the queued stream.
func (g *GoogleClassicTTSEngine) queue(gen uint64, format beep.Format, streamer beep.StreamSeekCloser, cb Callbacks) bool {
	g.mu.Lock()
	if g.generation != gen {
		g.mu.Unlock()
		streamer.Close()
		return false
	}
	out, err := g.prepareSpeaker(format, streamer)
	if err != nil {
		g.mu.Unlock()
		streamer.Close()
		cb.fail(fmt.Sprintf("failed to open speaker: %v", err))
		return false
	}
	g.out.Play(beep.Seq(out, beep.Callback(func() {
		streamer.Close()
		// Runs with the speaker locked while queue may hold g.mu and wait
		// on the speaker, so g.mu is taken off this goroutine.
		go func() {
			if g.current(gen) {
				cb.end()
			}
		}()
	})))
	g.mu.Unlock()

	if g.current(gen) {
		cb.start()
	}
	return true
}

// prepareSpeaker initializes the speaker on first use and resamples later
// audio to the rate it was opened with. Caller holds g.mu.
func (g *GoogleClassicTTSEngine) prepareSpeaker(format beep.Format, s beep.Streamer) (beep.Streamer, error) {
	if g.sampleRate == 0 {
		if err := g.out.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return nil, err
		}
		g.sampleRate = format.SampleRate
	}
	if format.SampleRate != g.sampleRate {
		return beep.Resample(4, format.SampleRate, g.sampleRate, s), nil
	}
	return s, nil
}

func (g *GoogleClassicTTSEngine) current(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation == gen
}

func (g *GoogleClassicTTSEngine) synthesize(ctx context.Context, u Utterance) ([]byte, error) {
	params := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: googleDefaultLang,
		Name:         g.fallbackVoice(),
	}
	if u.Voice != nil {
		params.LanguageCode = u.Voice.Lang
		params.Name = u.Voice.Name
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: u.Text},
		},
		Voice:       params,
		AudioConfig: googleAudioConfig(params.Name, u),
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize: %w", err)
	}
	return resp.AudioContent, nil
}

// Chirp voices reject speakingRate and pitch, so they only get the encoding.
func googleAudioConfig(voiceName string, u Utterance) *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if strings.Contains(strings.ToLower(voiceName), "chirp") {
		return cfg
	}

	cfg.SpeakingRate = clampFloat(u.Rate, 0.25, 4)
	cfg.Pitch = clampFloat((u.Pitch-1)*googlePitchRange, -googlePitchRange, googlePitchRange)
	return cfg
}

func (g *GoogleClassicTTSEngine) Cancel() error {
	g.mu.Lock()
	g.generation++
	if g.cancelReq != nil {
		g.cancelReq()
		g.cancelReq = nil
	}
	initialized := g.sampleRate != 0
	g.mu.Unlock()

	if initialized {
		g.out.Clear()
	}
	return nil
}

func (g *GoogleClassicTTSEngine) Close() error {
	if err := g.Cancel(); err != nil {
		logrus.WithError(err).Warn("failed to cancel Google playback")
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return g.client.Close()
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
