package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavWindow_PushState(t *testing.T) {
	var pushed []string
	w := NewNavWindow("", func(url string) { pushed = append(pushed, url) })
	assert.Equal(t, "/", w.Location())

	w.PushState("/run")
	assert.Equal(t, "/run", w.Location())
	assert.Equal(t, []string{"/run"}, pushed)

	w.SetLocation("")
	assert.Equal(t, "/run", w.Location())
	w.SetLocation("/run?job=2")
	assert.Equal(t, "/run?job=2", w.Location())
}

func TestNavWindow_PopStateListeners(t *testing.T) {
	w := NewNavWindow("/run", nil)

	var order []string
	var removeFirst func()
	removeFirst = w.AddPopStateListener(func() {
		order = append(order, "first")
		removeFirst()
	})
	w.AddPopStateListener(func() { order = append(order, "second") })
	assert.Equal(t, 2, w.ListenerCount())

	w.PopState()
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, w.ListenerCount())

	w.PopState()
	assert.Equal(t, []string{"first", "second", "second"}, order)
}

func TestNavWindow_RemoveIsIdempotent(t *testing.T) {
	w := NewNavWindow("/", nil)
	remove := w.AddPopStateListener(func() {})
	remove()
	remove()
	assert.Equal(t, 0, w.ListenerCount())
}
