package report

import (
	"sync"

	"github.com/sakif/trashwatch/internal/model"
)

// DraftSlot holds the one report a session is composing. It is safe for
// concurrent use; two requests from the same client may race on it.
type DraftSlot struct {
	mu    sync.Mutex
	draft *model.Report
}

// Begin replaces whatever draft was there with d.
func (s *DraftSlot) Begin(d model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = &d
}

// AttachImage sets the image path on the current draft.
// It reports false when there is no draft to attach to.
func (s *DraftSlot) AttachImage(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return false
	}
	s.draft.ImagePath = path
	return true
}

// Current returns a copy of the draft, or false if the slot is empty.
func (s *DraftSlot) Current() (model.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return model.Report{}, false
	}
	return *s.draft, true
}

// Discard empties the slot.
func (s *DraftSlot) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// Take empties the slot if it still holds want, matched by ReportedAt and
// image path. A draft that was replaced in the meantime is left alone.
func (s *DraftSlot) Take(want model.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || !s.draft.ReportedAt.Equal(want.ReportedAt) || s.draft.ImagePath != want.ImagePath {
		return false
	}
	s.draft = nil
	return true
}
