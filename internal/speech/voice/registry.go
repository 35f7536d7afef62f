package voice

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Lister is anything that can enumerate voices, usually a tts.Engine.
type Lister interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Registry caches the engine's voice list. The list is only ever replaced
// as a whole, so readers see either the old or the new list.
type Registry struct {
	voices atomic.Pointer[[]Voice]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.voices.Store(&[]Voice{})
	return r
}

// Refresh queries l and replaces the cache. On error the previous list is kept.
func (r *Registry) Refresh(ctx context.Context, l Lister) ([]Voice, error) {
	voices, err := l.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	r.Replace(voices)
	return r.Voices(), nil
}

// Replace swaps in a copy of voices.
func (r *Registry) Replace(voices []Voice) {
	list := make([]Voice, len(voices))
	copy(list, voices)
	r.voices.Store(&list)
}

// Voices returns a copy of the cached list in engine order.
func (r *Registry) Voices() []Voice {
	cur := *r.voices.Load()
	out := make([]Voice, len(cur))
	copy(out, cur)
	return out
}

func (r *Registry) Len() int {
	return len(*r.voices.Load())
}

// FindByName returns the first cached voice named name.
func (r *Registry) FindByName(name string) (Voice, bool) {
	for _, v := range *r.voices.Load() {
		if v.Name == name {
			return v, true
		}
	}
	return Voice{}, false
}

// Lookup resolves id as a Key first and falls back to a display name.
func (r *Registry) Lookup(id string) (Voice, bool) {
	if id = strings.TrimSpace(id); id == "" {
		return Voice{}, false
	}

	for _, v := range *r.voices.Load() {
		if v.Key() == id {
			return v, true
		}
	}
	return r.FindByName(id)
}
