// Package repository declares the storage contracts the service layer depends on.
// internal/repository/sqlite provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"
)

// ReportRepository stores trash-problem reports. There is no delete.
type ReportRepository interface {
	// UpsertReport inserts report, or replaces the stored row with the same ID.
	// A zero ID means "new": the assigned ID is written back into report.
	UpsertReport(ctx context.Context, report *model.Report) error

	// MarkResolved sets the resolution fields on report and persists the full record.
	MarkResolved(ctx context.Context, report *model.Report, resolvedBy string) error

	// AllReports returns every report in storage order. Callers must not rely on it.
	AllReports(ctx context.Context) ([]model.Report, error)

	// SubscribeReports delivers the full collection now and after every mutation.
	SubscribeReports(ctx context.Context) (*feed.Subscription[[]model.Report], error)
}

// UserRepository stores actors.
type UserRepository interface {
	// CreateUser returns apperror.ErrConflict if the username is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}
