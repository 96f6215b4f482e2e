package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/report"
	"github.com/sakif/trashwatch/internal/repository"
)

// PhotoStore keeps captured photos and returns the path a report refers to
// them by. *media.Store implements it.
type PhotoStore interface {
	Save(ctx context.Context, src io.Reader) (path string, err error)
}

// ReportService implements the report lifecycle.
//
// USER FLOW (role User):
//
//	BeginDraft → CapturePhoto / AttachPhoto → SaveDraft
//	        ↘ DiscardDraft at any point
//
// ADMIN FLOW (role Admin):
//
//	Resolve: Reported → Resolved, recording the admin's username and the time
//
// The draft lives in the caller's session (report.DraftSlot) until SaveDraft
// writes it to the store. Nothing is persisted before that.
type ReportService struct {
	reports repository.ReportRepository
	photos  PhotoStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewReportService creates a ReportService.
func NewReportService(reports repository.ReportRepository, photos PhotoStore, logger *slog.Logger) *ReportService {
	return &ReportService{
		reports: reports,
		photos:  photos,
		logger:  logger,
		now:     time.Now,
	}
}

// BeginDraft starts a new report at the given location for actor, replacing
// any draft the slot already held. Only actors with role User file reports.
func (s *ReportService) BeginDraft(actor *model.User, slot *report.DraftSlot, latitude, longitude float64) (model.Report, error) {
	if actor == nil || actor.Role != model.RoleUser {
		return model.Report{}, apperror.Forbidden("only users can report trash problems")
	}

	d := model.NewDraft(actor.ID, latitude, longitude, s.now())
	slot.Begin(d)

	s.logger.Debug("draft started",
		slog.Int64("userID", actor.ID),
		slog.Float64("latitude", latitude),
		slog.Float64("longitude", longitude),
	)
	return d, nil
}

// AttachPhoto sets path as the draft's image.
func (s *ReportService) AttachPhoto(slot *report.DraftSlot, path string) (model.Report, error) {
	if !slot.AttachImage(path) {
		return model.Report{}, noDraft()
	}
	d, _ := slot.Current()
	return d, nil
}

// CapturePhoto stores the photo read from src and attaches it to the draft.
// The draft must exist before the photo is stored, so a stray upload leaves
// no file behind.
func (s *ReportService) CapturePhoto(ctx context.Context, slot *report.DraftSlot, src io.Reader) (model.Report, error) {
	if _, ok := slot.Current(); !ok {
		return model.Report{}, noDraft()
	}

	path, err := s.photos.Save(ctx, src)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return model.Report{}, err
		}
		s.logger.Error("storing captured photo", slog.String("error", err.Error()))
		return model.Report{}, apperror.PersistenceFailure("capture photo", err)
	}

	return s.AttachPhoto(slot, path)
}

// SaveDraft persists actor's draft and clears the slot.
//
// A draft begun by someone other than actor is treated as absent (NotFound)
// and left in place. A draft without a photo is rejected with
// ValidationFailed: reports are complete before their first durable write.
// On a store failure the draft stays in the slot so the client can retry.
func (s *ReportService) SaveDraft(ctx context.Context, actor *model.User, slot *report.DraftSlot) (model.Report, error) {
	d, ok := slot.Current()
	if !ok {
		return model.Report{}, noDraft()
	}
	if actor == nil || d.UserID != actor.ID {
		s.logger.Warn("refusing to save a draft owned by another actor",
			slog.Int64("ownerID", d.UserID),
		)
		return model.Report{}, noDraft()
	}
	if d.ImagePath == "" {
		return model.Report{}, apperror.ValidationFailed("imagePath", "attach a photo before saving the report")
	}

	pending := d
	if err := s.reports.UpsertReport(ctx, &d); err != nil {
		s.logger.Error("saving report",
			slog.Int64("userID", d.UserID),
			slog.String("error", err.Error()),
		)
		return model.Report{}, apperror.PersistenceFailure("save report", err)
	}
	slot.Take(pending)

	s.logger.Info("report saved",
		slog.Int64("reportID", d.ID),
		slog.Int64("userID", d.UserID),
	)
	return d, nil
}

// DiscardDraft abandons the current draft. Nothing was persisted, so nothing
// needs undoing.
func (s *ReportService) DiscardDraft(slot *report.DraftSlot) {
	slot.Discard()
}

// Resolve marks r as resolved by actor. Only admins may resolve.
//
// On success r carries the resolution fields. Resolve does not check the
// current status; resolving twice overwrites adminName and resolvedAt.
func (s *ReportService) Resolve(ctx context.Context, actor *model.User, r *model.Report) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("only admins can resolve reports")
	}

	if err := s.reports.MarkResolved(ctx, r, actor.Username); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("resolving report",
			slog.Int64("reportID", r.ID),
			slog.String("admin", actor.Username),
			slog.String("error", err.Error()),
		)
		return apperror.PersistenceFailure("resolve report "+strconv.FormatInt(r.ID, 10), err)
	}

	s.logger.Info("report resolved",
		slog.Int64("reportID", r.ID),
		slog.String("admin", actor.Username),
	)
	return nil
}

func noDraft() *apperror.AppError {
	return apperror.NotFound("draft", "current")
}
