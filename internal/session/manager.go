package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/report"
)

// ReportSource is the live report collection sessions derive their view from.
// *sqlite.DB implements it.
type ReportSource interface {
	SubscribeReports(ctx context.Context) (*feed.Subscription[[]model.Report], error)
}

// Session is the server-side state of one client.
type Session struct {
	ID     string
	Holder *Holder
	View   *report.View
	Draft  *report.DraftSlot

	mu       sync.Mutex
	lastSeen time.Time

	unbind func()
	cancel context.CancelFunc
	done   chan struct{}
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// close stops the view goroutine, waits for it to exit, and ends every
// subscription to the view so open streams finish.
func (s *Session) close() {
	s.unbind()
	s.cancel()
	<-s.done
	s.View.Close()
}

// Manager owns every live session.
//
// LIFECYCLE:
//
//	m := NewManager(db, ttl, logger)
//	m.Start()      // launches the idle-session reaper
//	...
//	m.Stop()       // stops the reaper and closes all sessions
type Manager struct {
	src    ReportSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	reapEvery time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewManager creates a session manager. Sessions unused for longer than ttl
// are closed by the reaper once Start has been called.
func NewManager(src ReportSource, ttl time.Duration, logger *slog.Logger) *Manager {
	reapEvery := min(ttl/2, time.Minute)
	if reapEvery <= 0 {
		reapEvery = time.Minute
	}
	return &Manager{
		src:       src,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		reapEvery: reapEvery,
		done:      make(chan struct{}),
	}
}

// Create opens a new, signed-out session and starts its live view.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	sub, err := m.src.SubscribeReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: subscribing to reports: %w", err)
	}

	s := &Session{
		ID:       xid.New().String(),
		Holder:   NewHolder(),
		View:     report.NewView(m.logger),
		Draft:    &report.DraftSlot{},
		lastSeen: m.now(),
		done:     make(chan struct{}),
	}

	s.View.Prime(sub)
	s.unbind = s.View.Bind(s.Holder)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.View.Run(runCtx, sub)
	}()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session created", slog.String("sessionID", s.ID))
	return s, nil
}

// Get returns the session with the given id and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// Remove closes the session with the given id. It reports whether it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	m.logger.Debug("session removed", slog.String("sessionID", id))
	return true
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start launches the reaper. Calling it more than once has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.logger.Info("starting session reaper", slog.Duration("ttl", m.ttl))
		m.wg.Add(1)
		go m.reaper()
	})
}

// Stop shuts the reaper down and closes every session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("shutting down session manager", slog.Int("sessions", m.Len()))
		close(m.done)
		m.wg.Wait()

		m.mu.Lock()
		all := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, s := range all {
			s.close()
		}
	})
}

func (m *Manager) reaper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.reapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.reapIdle(); n > 0 {
				m.logger.Info("reaped idle sessions", slog.Int("count", n))
			}
		}
	}
}

// reapIdle closes sessions idle for longer than the ttl and returns how many.
func (m *Manager) reapIdle() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	return len(idle)
}
