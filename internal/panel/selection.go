package panel

import (
	"math"
	"strconv"
	"strings"
)

// Slider is a bounded continuous control. It constrains its own value; the
// rest of the panel never validates rate or pitch beyond this.
type Slider struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Value float64 `json:"value"`
}

func NewSlider(min, max, step, value float64) Slider {
	s := Slider{Min: min, Max: max, Step: step, Value: min}
	s.set(value)
	return s
}

// Set parses raw and moves the slider to the nearest step within bounds.
// Unparseable input leaves the slider where it was.
func (s *Slider) Set(raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	s.set(v)
	return true
}

func (s *Slider) set(v float64) {
	if v < s.Min {
		v = s.Min
	}
	if v > s.Max {
		v = s.Max
	}
	if s.Step > 0 {
		v = s.Min + math.Round((v-s.Min)/s.Step)*s.Step
		if v > s.Max {
			v -= s.Step
		}
	}
	s.Value = math.Round(v*1e6) / 1e6
}

// Readout is the text shown next to the slider.
func (s Slider) Readout() string {
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// Selection holds the user's current choices. It satisfies playback.Form.
type Selection struct {
	text    string
	voiceID string
	rate    Slider
	pitch   Slider
}

func NewSelection(rate, pitch Slider) *Selection {
	return &Selection{rate: rate, pitch: pitch}
}

func (s *Selection) Text() string    { return s.text }
func (s *Selection) VoiceID() string { return s.voiceID }
func (s *Selection) Rate() string    { return s.rate.Readout() }
func (s *Selection) Pitch() string   { return s.pitch.Readout() }

func (s *Selection) SetText(text string) { s.text = text }
func (s *Selection) SetVoice(id string)  { s.voiceID = id }

func (s *Selection) SetRate(raw string) bool  { return s.rate.Set(raw) }
func (s *Selection) SetPitch(raw string) bool { return s.pitch.Set(raw) }

func (s *Selection) RateSlider() Slider  { return s.rate }
func (s *Selection) PitchSlider() Slider { return s.pitch }
