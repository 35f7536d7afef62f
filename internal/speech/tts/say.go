package tts

import (
	"fmt"
	"regexp"
	"strings"

	"speakpanel/internal/speech/voice"
)

// `say -v ?` prints "Name    xx_YY    # sample sentence"; names may contain spaces.
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(output string) []voice.Voice {
	var voices []voice.Voice
	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		voices = append(voices, voice.Voice{
			Name: strings.TrimSpace(m[1]),
			Lang: strings.ReplaceAll(m[2], "_", "-"),
		})
	}
	return voices
}

func sayArgs(u Utterance, fallbackVoice string) []string {
	args := []string{"-f", "-"}

	switch {
	case u.Voice != nil:
		args = append(args, "-v", u.Voice.Name)
	case fallbackVoice != "" && fallbackVoice != "default":
		args = append(args, "-v", fallbackVoice)
	}

	// words per minute, default is ~175
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*u.Rate))
	return args
}

// sayText prefixes the pitch baseline command understood by the macOS synthesizer.
func sayText(u Utterance) string {
	if u.Pitch == 1 {
		return u.Text
	}
	return fmt.Sprintf("[[pbas %d]] %s", clampInt(int(50*u.Pitch), 0, 100), u.Text)
}
