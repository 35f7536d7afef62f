package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	voices []Voice
	err    error
}

func (s staticLister) Voices(context.Context) ([]Voice, error) {
	return s.voices, s.err
}

func TestAutoSelect(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		marker string
		want   string
		ok     bool
	}{
		{
			name: "locale marker beats default flag",
			voices: []Voice{
				{Name: "Alpha", Lang: "en-US"},
				{Name: "Bindi", Lang: "hi-IN"},
				{Name: "Charlie", Lang: "en-GB", Default: true},
			},
			marker: "in",
			want:   "Bindi",
			ok:     true,
		},
		{
			name: "default flag fallback",
			voices: []Voice{
				{Name: "Alpha", Lang: "en-US", Default: true},
				{Name: "Delta", Lang: "fr-FR"},
			},
			marker: "in",
			want:   "Alpha",
			ok:     true,
		},
		{
			name: "case insensitive marker",
			voices: []Voice{
				{Name: "Alpha", Lang: "en-US"},
				{Name: "Echo", Lang: "hi-in"},
			},
			marker: "IN",
			want:   "Echo",
			ok:     true,
		},
		{
			name:   "empty marker skips locale rule",
			voices: []Voice{{Name: "Alpha", Lang: "en-US"}, {Name: "Delta", Lang: "fr-FR", Default: true}},
			want:   "Delta",
			ok:     true,
		},
		{
			name:   "no match and no default",
			voices: []Voice{{Name: "Alpha", Lang: "en-US"}},
			marker: "in",
		},
		{
			name: "empty list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AutoSelect(tt.voices, tt.marker)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestRegistryRefreshReplacesWholeList(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Voices())

	voices, err := r.Refresh(context.Background(), staticLister{voices: []Voice{{Name: "Alpha", Lang: "en-US"}}})
	require.NoError(t, err)
	assert.Len(t, voices, 1)

	_, err = r.Refresh(context.Background(), staticLister{voices: []Voice{{Name: "Bindi", Lang: "hi-IN"}, {Name: "Charlie", Lang: "en-GB"}}})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	_, ok := r.FindByName("Alpha")
	assert.False(t, ok)
	v, ok := r.FindByName("Charlie")
	assert.True(t, ok)
	assert.Equal(t, "en-GB", v.Lang)
}

func TestRegistryRefreshErrorKeepsCache(t *testing.T) {
	r := NewRegistry()
	r.Replace([]Voice{{Name: "Alpha"}})

	_, err := r.Refresh(context.Background(), staticLister{err: errors.New("engine gone")})
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCopiesAreIsolated(t *testing.T) {
	src := []Voice{{Name: "Alpha"}}
	r := NewRegistry()
	r.Replace(src)
	src[0].Name = "Mutated"

	got := r.Voices()
	got[0].Name = "Also mutated"
	assert.Equal(t, "Alpha", r.Voices()[0].Name)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Replace([]Voice{
		{Name: "Twin", Lang: "en-US"},
		{Name: "Twin", Lang: "en-GB", Default: true},
	})

	v, ok := r.Lookup(Voice{Name: "Twin", Lang: "en-GB", Default: true}.Key())
	require.True(t, ok)
	assert.Equal(t, "en-GB", v.Lang)

	v, ok = r.Lookup("Twin")
	require.True(t, ok)
	assert.Equal(t, "en-US", v.Lang)

	_, ok = r.Lookup("")
	assert.False(t, ok)
	_, ok = r.Lookup("Nobody")
	assert.False(t, ok)
}

func TestVoiceLabel(t *testing.T) {
	assert.Equal(t, "Alpha (en-US)", Voice{Name: "Alpha", Lang: "en-US"}.Label())
	assert.Equal(t, "Alpha", Voice{Name: "Alpha"}.Label())
}
