package panel

import "speakpanel/internal/speech/voice"

// NoVoicesPlaceholder replaces the voice list when the engine offers none.
const NoVoicesPlaceholder = "No voices available"

// VoiceOption is one entry of the voice picker.
type VoiceOption struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

func optionsFor(voices []voice.Voice) []VoiceOption {
	opts := make([]VoiceOption, 0, len(voices))
	for _, v := range voices {
		opts = append(opts, VoiceOption{
			Value:   v.Key(),
			Label:   v.Label(),
			Name:    v.Name,
			Lang:    v.Lang,
			Default: v.Default,
		})
	}
	return opts
}

// SliderState is a slider plus the readout shown beside it.
type SliderState struct {
	Slider
	Readout string `json:"readout"`
}

func sliderState(s Slider) SliderState {
	return SliderState{Slider: s, Readout: s.Readout()}
}

// ViewState is everything a view needs to draw the panel.
type ViewState struct {
	Text          string        `json:"text"`
	Voices        []VoiceOption `json:"voices"`
	SelectedVoice string        `json:"selected_voice"`
	Placeholder   string        `json:"placeholder,omitempty"`
	Rate          SliderState   `json:"rate"`
	Pitch         SliderState   `json:"pitch"`
	SpeakEnabled  bool          `json:"speak_enabled"`
	StopEnabled   bool          `json:"stop_enabled"`
	SpeakLabel    string        `json:"speak_label"`
	Status        string        `json:"status"`
	Playback      string        `json:"playback"`
}

// View draws panel state. Alert is a blocking notification such as an
// empty-text prompt or an engine error.
type View interface {
	Render(ViewState)
	Alert(msg string)
}

// Views fans out to several views.
type Views []View

func (vs Views) Render(s ViewState) {
	for _, v := range vs {
		v.Render(s)
	}
}

func (vs Views) Alert(msg string) {
	for _, v := range vs {
		v.Alert(msg)
	}
}
