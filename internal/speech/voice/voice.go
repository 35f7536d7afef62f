package voice

import (
	"fmt"
	"strings"
)

// Voice is a synthesis persona reported by the speech engine.
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

// Key identifies a voice within a registry. Engines don't guarantee unique
// display names, so the language tag and default flag are part of the key.
func (v Voice) Key() string {
	return fmt.Sprintf("%s|%s|%t", v.Name, v.Lang, v.Default)
}

// Label is the text shown in voice pickers.
func (v Voice) Label() string {
	if v.Lang == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Lang)
}

// AutoSelect picks the voice a fresh list should preselect.
// The first voice whose language tag contains marker wins, then the first
// voice the engine flags as its own default. ok is false when neither applies.
func AutoSelect(voices []Voice, marker string) (Voice, bool) {
	if marker = strings.ToLower(strings.TrimSpace(marker)); marker != "" {
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Lang), marker) {
				return v, true
			}
		}
	}

	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}

	return Voice{}, false
}
