package websocket

import (
	"sync"
)

// NavWindow is the server side view of a browser tab's history. It lets
// the back-navigation guard run against a real tab over the socket.
type NavWindow struct {
	mu        sync.Mutex
	location  string
	listeners map[int]func()
	nextID    int
	push      func(url string)
}

// NewNavWindow creates a window at location. push is called for every
// history entry the guard adds.
func NewNavWindow(location string, push func(url string)) *NavWindow {
	if location == "" {
		location = "/"
	}
	return &NavWindow{
		location:  location,
		listeners: make(map[int]func()),
		push:      push,
	}
}

// Location returns the tab's current URL
func (w *NavWindow) Location() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.location
}

// PushState asks the tab to add a history entry for url
func (w *NavWindow) PushState(url string) {
	w.mu.Lock()
	w.location = url
	push := w.push
	w.mu.Unlock()

	if push != nil {
		push(url)
	}
}

// AddPopStateListener subscribes fn to back/forward navigation
func (w *NavWindow) AddPopStateListener(fn func()) (remove func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// SetLocation records a navigation reported by the tab
func (w *NavWindow) SetLocation(url string) {
	if url == "" {
		return
	}
	w.mu.Lock()
	w.location = url
	w.mu.Unlock()
}

// PopState delivers a back/forward navigation to every listener. The
// listener list is copied first so listeners may remove themselves.
func (w *NavWindow) PopState() {
	w.mu.Lock()
	listeners := make([]func(), 0, len(w.listeners))
	for id := 0; id < w.nextID; id++ {
		if fn, ok := w.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// ListenerCount returns the number of subscribed listeners
func (w *NavWindow) ListenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}
