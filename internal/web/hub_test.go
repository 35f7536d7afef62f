package web

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speakpanel/internal/panel"
)

type countingRecorder struct {
	connected, disconnected int
}

func (c *countingRecorder) ClientConnected()    { c.connected++ }
func (c *countingRecorder) ClientDisconnected() { c.disconnected++ }

func TestHubBroadcast(t *testing.T) {
	rec := &countingRecorder{}
	h := NewHub(rec)
	a, b := newClient(), newClient()
	h.add(a)
	h.add(b)
	assert.Equal(t, 2, h.Len())

	h.Render(panel.ViewState{Text: "hi"})
	h.Alert("careful")

	for _, c := range []*client{a, b} {
		var state, alert message
		require.NoError(t, json.Unmarshal(<-c.send, &state))
		require.NoError(t, json.Unmarshal(<-c.send, &alert))
		assert.Equal(t, "state", state.Type)
		assert.Equal(t, "hi", state.State.Text)
		assert.Equal(t, message{Type: "alert", Message: "careful"}, alert)
	}

	h.remove(a)
	h.remove(a)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 2, rec.connected)
	assert.Equal(t, 1, rec.disconnected)

	_, open := <-a.send
	assert.False(t, open)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(nil)
	c := newClient()
	h.add(c)

	for i := 0; i < sendBuffer+1; i++ {
		h.Alert("flood")
	}

	assert.Equal(t, 0, h.Len())
	n := 0
	for range c.send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHubIgnoresClientRemovedBeforeAdd(t *testing.T) {
	rec := &countingRecorder{}
	h := NewHub(rec)
	c := newClient()

	h.remove(c)
	assert.False(t, h.add(c))

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, rec.connected)
	assert.Equal(t, 0, rec.disconnected)
	_, open := <-c.send
	assert.False(t, open)

	h.Render(panel.ViewState{})
}
