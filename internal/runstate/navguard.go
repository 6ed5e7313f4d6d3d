package runstate

import "sync"

// Window is the part of a browser window the back-navigation guard uses
type Window interface {
	// Location returns the current URL
	Location() string
	// PushState adds a history entry for url
	PushState(url string)
	// AddPopStateListener subscribes fn to back/forward navigation and
	// returns a function that unsubscribes it
	AddPopStateListener(fn func()) (remove func())
}

type backGuard struct {
	mu       sync.Mutex
	detached bool
	remove   func()
}

func (g *backGuard) detachLocked() {
	if g.detached {
		return
	}
	g.detached = true
	if g.remove != nil {
		g.remove()
	}
}

// NewBackNavigationGuard keeps the user on the current page while
// shouldStayLocked returns true by re-pushing history on every back
// navigation. Once the predicate flips, onUnlock runs and the listener
// removes itself. The returned function detaches the guard; it is safe to
// call more than once.
func NewBackNavigationGuard(w Window, shouldStayLocked func() bool, onUnlock func()) (dispose func()) {
	if !shouldStayLocked() {
		if onUnlock != nil {
			onUnlock()
		}
		return func() {}
	}

	// Consume the first back gesture before it can leave the page
	w.PushState(w.Location())

	g := &backGuard{}
	remove := w.AddPopStateListener(func() {
		g.mu.Lock()
		if g.detached {
			g.mu.Unlock()
			return
		}
		if shouldStayLocked() {
			w.PushState(w.Location())
			g.mu.Unlock()
			return
		}
		g.detachLocked()
		g.mu.Unlock()

		if onUnlock != nil {
			onUnlock()
		}
	})

	g.mu.Lock()
	if g.detached {
		remove()
	} else {
		g.remove = remove
	}
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		g.detachLocked()
		g.mu.Unlock()
	}
}
