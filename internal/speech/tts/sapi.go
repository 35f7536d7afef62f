package tts

import (
	"fmt"
	"math"
	"strings"

	"speakpanel/internal/speech/voice"
)

const sapiPrelude = `Add-Type -AssemblyName System.Speech; $s = New-Object System.Speech.Synthesis.SpeechSynthesizer; `

// sapiListScript prints "name<TAB>culture<TAB>isDefault" per installed voice.
const sapiListScript = sapiPrelude + `$d = $s.Voice.Name; $s.GetInstalledVoices() | ForEach-Object { $i = $_.VoiceInfo; "{0}` + "`t" + `{1}` + "`t" + `{2}" -f $i.Name, $i.Culture.Name, ($i.Name -eq $d) }`

func parseSAPIVoices(output string) []voice.Voice {
	var voices []voice.Voice
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			continue
		}
		v := voice.Voice{Name: strings.TrimSpace(parts[0]), Lang: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			v.Default = strings.EqualFold(strings.TrimSpace(parts[2]), "true")
		}
		voices = append(voices, v)
	}
	return voices
}

// sapiSpeakScript reads the text from stdin so it never has to be quoted.
// Plain text has no pitch control, so a non-default pitch wraps the text in
// an SSML prosody element.
func sapiSpeakScript(u Utterance, fallbackVoice string) string {
	var b strings.Builder
	b.WriteString(sapiPrelude)

	name := fallbackVoice
	if u.Voice != nil {
		name = u.Voice.Name
	}
	if name != "" && name != "default" {
		fmt.Fprintf(&b, "$s.SelectVoice('%s'); ", strings.ReplaceAll(name, "'", "''"))
	}

	// SAPI rate range is -10 to 10
	fmt.Fprintf(&b, "$s.Rate = %d; ", clampInt(int(u.Rate*10)-10, -10, 10))

	pitch := sapiPitchPercent(u.Pitch)
	if pitch == 0 {
		b.WriteString("$s.Speak([Console]::In.ReadToEnd())")
		return b.String()
	}

	b.WriteString("$t = [System.Security.SecurityElement]::Escape([Console]::In.ReadToEnd()); ")
	fmt.Fprintf(&b, `$s.SpeakSsml("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='" + $s.Voice.Culture.Name + "'><prosody pitch='%+d%%'>" + $t + "</prosody></speak>")`, pitch)
	return b.String()
}

// sapiPitchPercent maps pitch 0..2 onto a relative prosody change of
// -50% to +50%. Zero means leave the voice alone.
func sapiPitchPercent(pitch float64) int {
	if math.IsNaN(pitch) {
		return 0
	}
	return clampInt(int(math.Round((pitch-1)*50)), -50, 50)
}
