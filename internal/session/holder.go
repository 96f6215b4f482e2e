// Package session keeps per-client state in process memory: who is signed in,
// the live report view derived for them, and the draft they are composing.
//
// One Session stands in for one running client app. Nothing here is persisted;
// a restart signs everybody out.
package session

import (
	"sync"

	"github.com/sakif/trashwatch/internal/model"
)

// Holder is the observable current actor of one session.
//
// Watchers are called synchronously, on the goroutine that changed the actor,
// in the order changes happen. notifyMu serialises whole change+notify
// sequences so two concurrent Sets cannot deliver out of order.
type Holder struct {
	notifyMu sync.Mutex

	mu       sync.Mutex
	current  *model.User
	watchers map[uint64]func(*model.User)
	nextID   uint64
}

func NewHolder() *Holder {
	return &Holder{watchers: make(map[uint64]func(*model.User))}
}

// Current returns the signed-in actor, or nil.
func (h *Holder) Current() *model.User {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Set replaces the actor unless the new one has the same username and role as
// the current one. It reports whether anything changed; watchers are only
// notified on change.
func (h *Holder) Set(actor *model.User) bool {
	if actor == nil {
		return h.Clear()
	}

	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if cur := h.current; cur != nil && cur.Username == actor.Username && cur.Role == actor.Role {
		h.mu.Unlock()
		return false
	}
	u := *actor
	h.current = &u
	fns := h.watchersLocked()
	h.mu.Unlock()

	notify(fns, &u)
	return true
}

// Clear signs the actor out. Watchers are always notified, even if the holder
// was already empty. It reports whether an actor was present.
func (h *Holder) Clear() bool {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	had := h.current != nil
	h.current = nil
	fns := h.watchersLocked()
	h.mu.Unlock()

	notify(fns, nil)
	return had
}

// Watch calls fn with the current actor and then after every change until the
// returned func is called.
func (h *Holder) Watch(fn func(*model.User)) (unwatch func()) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = fn
	cur := h.current
	h.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.watchers, id)
		})
	}
}

func (h *Holder) watchersLocked() []func(*model.User) {
	fns := make([]func(*model.User), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(*model.User), u *model.User) {
	for _, fn := range fns {
		fn(u)
	}
}
