package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/service"
)

// maxPhotoBytes caps photo uploads. Phone cameras produce a few MB.
const maxPhotoBytes = 20 << 20

// DraftHandler drives the capture flow of a User:
//
//	POST   /api/draft        drop a pin (begin a draft)
//	POST   /api/draft/photo  attach the captured photo
//	POST   /api/draft/save   persist the report
//	GET    /api/draft        look at the draft
//	DELETE /api/draft        abandon it
type DraftHandler struct {
	auth    *service.AuthService
	reports *service.ReportService
	logger  *slog.Logger
}

// NewDraftHandler creates a DraftHandler.
func NewDraftHandler(authSvc *service.AuthService, reports *service.ReportService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{auth: authSvc, reports: reports, logger: logger}
}

type beginDraftRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// HandleBegin starts a new draft at the given location.
//
// HTTP: POST /api/draft
// REQUEST BODY: {"latitude": 38.72, "longitude": -9.14}
func (h *DraftHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	sess, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	var req beginDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	d, err := h.reports.BeginDraft(actor, sess.Draft, *req.Latitude, *req.Longitude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// HandleGet returns the current draft.
//
// HTTP: GET /api/draft
func (h *DraftHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}
	if actor.Role != model.RoleUser {
		writeError(w, apperror.Forbidden("only users have drafts"))
		return
	}

	d, ok := sess.Draft.Current()
	if !ok {
		writeError(w, apperror.NotFound("draft", "current"))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandlePhoto attaches a captured photo to the draft.
//
// HTTP: POST /api/draft/photo
// REQUEST: multipart/form-data with the image in the "photo" field
//
// The photo is downscaled and re-encoded as JPEG before it is stored.
func (h *DraftHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	sess, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}
	if actor.Role != model.RoleUser {
		writeError(w, apperror.Forbidden("only users have drafts"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, _, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperror.ValidationFailed("photo", "photo is too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("photo", "multipart field \"photo\" is required"))
		return
	}
	defer file.Close()

	d, err := h.reports.CapturePhoto(r.Context(), sess.Draft, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleSave persists the draft.
//
// HTTP: POST /api/draft/save
//
// RESPONSES:
//   - 201 with the stored report (its id assigned)
//   - 400 if no photo is attached yet
//   - 404 if there is no draft, or it was begun by another actor
//   - 500 on a store failure; the draft is kept and the save can be retried
func (h *DraftHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	sess, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}
	if actor.Role != model.RoleUser {
		writeError(w, apperror.Forbidden("only users have drafts"))
		return
	}

	saved, err := h.reports.SaveDraft(r.Context(), actor, sess.Draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleDiscard abandons the draft.
//
// HTTP: DELETE /api/draft
func (h *DraftHandler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	sess, _, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	h.reports.DiscardDraft(sess.Draft)
	w.WriteHeader(http.StatusNoContent)
}
