package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/repository"
)

var _ repository.ReportRepository = (*DB)(nil)

const reportColumns = `id, user_id, image_path, status, admin_name, reported_at, resolved_at, latitude, longitude`

// UpsertReport inserts a report or replaces the row sharing its ID.
//
// INSERT OR REPLACE deletes the conflicting row and inserts the new one, which
// is exactly "last write wins" keyed by id. New reports (ID == 0) let SQLite
// pick the id and get it written back.
//
// No validation happens here; the workflow decides what is fit to persist.
func (db *DB) UpsertReport(ctx context.Context, report *model.Report) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if report.ID == 0 {
		result, err := db.conn.ExecContext(ctx,
			`INSERT INTO TrashProblems
			   (user_id, image_path, status, admin_name, reported_at, resolved_at, latitude, longitude)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.UserID,
			report.ImagePath,
			report.Status,
			report.AdminName,
			report.ReportedAt,
			report.ResolvedAt,
			report.Latitude,
			report.Longitude,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting report (userID=%d): %w", report.UserID, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading inserted report id: %w", err)
		}
		report.ID = id
	} else {
		_, err := db.conn.ExecContext(ctx,
			`INSERT OR REPLACE INTO TrashProblems (`+reportColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID,
			report.UserID,
			report.ImagePath,
			report.Status,
			report.AdminName,
			report.ReportedAt,
			report.ResolvedAt,
			report.Latitude,
			report.Longitude,
		)
		if err != nil {
			return fmt.Errorf("sqlite: replacing report %d: %w", report.ID, err)
		}
	}

	db.publishReportsLocked(ctx)
	return nil
}

// MarkResolved stamps report as resolved by resolvedBy at the current time and
// writes the whole record back.
//
// The caller's struct is updated before the write. If the write fails the
// struct keeps the Resolved fields while the row does not; the next snapshot
// from SubscribeReports reflects the stored truth.
func (db *DB) MarkResolved(ctx context.Context, report *model.Report, resolvedBy string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	report.Resolve(resolvedBy, db.now())

	result, err := db.conn.ExecContext(ctx,
		`UPDATE TrashProblems
		 SET user_id = ?, image_path = ?, status = ?, admin_name = ?,
		     reported_at = ?, resolved_at = ?, latitude = ?, longitude = ?
		 WHERE id = ?`,
		report.UserID,
		report.ImagePath,
		report.Status,
		report.AdminName,
		report.ReportedAt,
		report.ResolvedAt,
		report.Latitude,
		report.Longitude,
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: resolving report %d: %w", report.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("report", strconv.FormatInt(report.ID, 10))
	}

	db.publishReportsLocked(ctx)
	return nil
}

// AllReports returns every report in rowid order.
func (db *DB) AllReports(ctx context.Context) ([]model.Report, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM TrashProblems`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports: %w", err)
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reports: %w", err)
	}

	return reports, nil
}

// SubscribeReports returns a live subscription over the full collection.
// The first value is the collection as of now.
func (db *DB) SubscribeReports(ctx context.Context) (*feed.Subscription[[]model.Report], error) {
	current, err := db.AllReports(ctx)
	if err != nil {
		return nil, err
	}
	return db.reports.SubscribeFrom(current), nil
}

// publishReportsLocked re-reads the collection and broadcasts it.
// Must be called with writeMu held. A failed read is logged but does not fail
// the write that triggered it; subscribers see the next successful one.
func (db *DB) publishReportsLocked(ctx context.Context) {
	reports, err := db.AllReports(context.WithoutCancel(ctx))
	if err != nil {
		db.logger.Error("re-reading reports after write",
			slog.String("error", err.Error()),
		)
		return
	}
	db.reports.Publish(reports)
}

// scanner is the subset of *sql.Row / *sql.Rows used by scanReport.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (model.Report, error) {
	var (
		r          model.Report
		adminName  sql.NullString
		resolvedAt sql.NullTime
	)
	if err := s.Scan(
		&r.ID,
		&r.UserID,
		&r.ImagePath,
		&r.Status,
		&adminName,
		&r.ReportedAt,
		&resolvedAt,
		&r.Latitude,
		&r.Longitude,
	); err != nil {
		return model.Report{}, fmt.Errorf("sqlite: scanning report row: %w", err)
	}
	if adminName.Valid {
		r.AdminName = &adminName.String
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return r, nil
}
