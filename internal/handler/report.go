package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/service"
)

// ReportHandler serves the signed-in actor's derived report list.
//
// Every read goes through the session's View, never straight to the store:
// what a client can list, fetch or resolve is exactly what the visibility
// policy lets its actor see.
type ReportHandler struct {
	auth    *service.AuthService
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(authSvc *service.AuthService, reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{auth: authSvc, reports: reports, logger: logger}
}

// listResponse is the derived list together with the sort flag that produced it.
type listResponse struct {
	SortByStatus bool           `json:"sortByStatus"`
	Reports      []model.Report `json:"reports"`
}

// HandleList returns the derived list.
//
// HTTP: GET /api/reports
//
// RESPONSE FORMAT:
//
//	{"sortByStatus": true, "reports": [{"id": 1, "status": "Reported", ...}, ...]}
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess, _, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	sortByStatus, reports := sess.View.Snapshot()
	writeJSON(w, http.StatusOK, listResponse{SortByStatus: sortByStatus, Reports: reports})
}

// HandleToggleSort flips between "status, then time" and "time only" ordering.
//
// HTTP: POST /api/reports/sort
func (h *ReportHandler) HandleToggleSort(w http.ResponseWriter, r *http.Request) {
	sess, _, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	sess.View.ToggleSort()
	sortByStatus, reports := sess.View.Snapshot()
	writeJSON(w, http.StatusOK, listResponse{SortByStatus: sortByStatus, Reports: reports})
}

// HandleGet returns one report from the derived list.
//
// HTTP: GET /api/reports/{id}
//
// A report that exists but is not visible to the actor is a 404, the same
// as one that does not exist.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, _, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := reportID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rep, ok := sess.View.FindByID(id)
	if !ok {
		writeError(w, apperror.NotFound("report", strconv.FormatInt(id, 10)))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleResolve marks a report as resolved by the signed-in admin.
//
// HTTP: POST /api/reports/{id}/resolve
//
// RESPONSES:
//   - 200 with the resolved report
//   - 403 if the actor is not an admin
//   - 404 if the report is not in the actor's derived list
//   - 409 if it is already resolved
func (h *ReportHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	sess, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}
	if !actor.IsAdmin() {
		writeError(w, apperror.Forbidden("only admins can resolve reports"))
		return
	}

	id, err := reportID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rep, ok := sess.View.FindByID(id)
	if !ok {
		writeError(w, apperror.NotFound("report", strconv.FormatInt(id, 10)))
		return
	}
	if rep.Status == model.StatusResolved {
		writeError(w, &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: "report " + strconv.FormatInt(id, 10) + " is already resolved",
		})
		return
	}

	if err := h.reports.Resolve(r.Context(), actor, &rep); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func reportID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "report id must be a positive integer")
	}
	return id, nil
}
