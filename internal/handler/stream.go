package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/trashwatch/internal/service"
)

// keepAliveEvery is how often an idle stream gets a comment line, so proxies
// don't close it.
const keepAliveEvery = 25 * time.Second

// StreamHandler pushes the derived list to the client as Server-Sent Events.
type StreamHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(authSvc *service.AuthService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{auth: authSvc, logger: logger}
}

// HandleStream streams the derived list.
//
// HTTP: GET /api/reports/stream
//
// The current list is sent at once, then again each time it changes: a
// report is saved or resolved, the sort flag flips, or the session's actor
// changes. Each event looks like:
//
//	event: reports
//	data: {"sortByStatus":true,"reports":[...]}
//
// Updates that arrive faster than the client reads are coalesced; the client
// always ends up with the latest list.
//
// The stream ends when the actor signs out or the session is closed. Each
// event and keep-alive counts as use of the session, so an open stream keeps
// it from being reaped.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sess, _, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// The server-wide write timeout would cut the stream off.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("clearing write deadline", slog.String("error", err.Error()))
	}

	sub := sess.View.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		sortByStatus, reports := sess.View.Snapshot()
		payload, err := json.Marshal(listResponse{SortByStatus: sortByStatus, Reports: reports})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: reports\ndata: %s\n\n", payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	// signedIn re-resolves the session, which also marks it as used.
	signedIn := func() bool {
		_, _, err := h.auth.Current(sess.ID)
		return err == nil
	}

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-sub.C():
			if !ok || !signedIn() {
				return
			}
			if err := send(); err != nil {
				h.logger.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if !signedIn() {
				return
			}
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
