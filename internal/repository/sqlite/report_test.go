package sqlite

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/model"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	return newTestDBWithLogger(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestDBWithLogger(t *testing.T, logger *slog.Logger) *DB {
	t.Helper()
	db, err := New(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestReport persists a fully formed report owned by userID.
func createTestReport(t *testing.T, db *DB, userID int64, reportedAt time.Time) *model.Report {
	t.Helper()
	r := model.NewDraft(userID, 38.72, -9.14, reportedAt)
	r.ImagePath = "/media/test.jpg"
	if err := db.UpsertReport(context.Background(), &r); err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}
	return &r
}

func TestUpsertReport_AssignsIncreasingIDs(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	first := createTestReport(t, db, 5, now)
	second := createTestReport(t, db, 5, now)

	if first.ID == 0 {
		t.Fatal("UpsertReport() did not set report.ID")
	}
	if second.ID <= first.ID {
		t.Errorf("second ID = %d, want > %d", second.ID, first.ID)
	}
}

func TestUpsertReport_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	reportedAt := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	created := createTestReport(t, db, 7, reportedAt)

	all, err := db.AllReports(context.Background())
	if err != nil {
		t.Fatalf("AllReports() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("AllReports() returned %d reports, want 1", len(all))
	}

	got := all[0]
	if got.ID != created.ID || got.UserID != 7 {
		t.Errorf("got id=%d user=%d, want id=%d user=7", got.ID, got.UserID, created.ID)
	}
	if got.Status != model.StatusReported {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusReported)
	}
	if got.ImagePath != "/media/test.jpg" {
		t.Errorf("ImagePath = %q", got.ImagePath)
	}
	if !got.ReportedAt.Equal(reportedAt) {
		t.Errorf("ReportedAt = %v, want %v", got.ReportedAt, reportedAt)
	}
	if got.AdminName != nil || got.ResolvedAt != nil {
		t.Error("unresolved report came back with resolution fields")
	}
	if got.Latitude != 38.72 || got.Longitude != -9.14 {
		t.Errorf("location = (%v, %v)", got.Latitude, got.Longitude)
	}
}

func TestUpsertReport_ReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	r := createTestReport(t, db, 5, time.Now())

	r.ImagePath = "/media/replaced.jpg"
	if err := db.UpsertReport(context.Background(), r); err != nil {
		t.Fatalf("UpsertReport() error = %v", err)
	}

	all, err := db.AllReports(context.Background())
	if err != nil {
		t.Fatalf("AllReports() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("AllReports() returned %d reports, want 1 after replace", len(all))
	}
	if all[0].ImagePath != "/media/replaced.jpg" {
		t.Errorf("ImagePath = %q, want replaced value", all[0].ImagePath)
	}
}

func TestUpsertReport_EmptyImagePathAccepted(t *testing.T) {
	db := newTestDB(t)
	r := model.NewDraft(5, 0, 0, time.Now())

	if err := db.UpsertReport(context.Background(), &r); err != nil {
		t.Fatalf("UpsertReport() should not validate, got %v", err)
	}
}

func TestMarkResolved(t *testing.T) {
	db := newTestDB(t)
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	r := createTestReport(t, db, 5, fixed.Add(-24*time.Hour))
	before := *r

	if err := db.MarkResolved(context.Background(), r, "bob"); err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}

	all, err := db.AllReports(context.Background())
	if err != nil {
		t.Fatalf("AllReports() error = %v", err)
	}
	got := all[0]

	if got.Status != model.StatusResolved {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusResolved)
	}
	if got.AdminName == nil || *got.AdminName != "bob" {
		t.Errorf("AdminName = %v, want bob", got.AdminName)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(fixed) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, fixed)
	}
	if got.ID != before.ID || got.UserID != before.UserID || got.ImagePath != before.ImagePath ||
		!got.ReportedAt.Equal(before.ReportedAt) || got.Latitude != before.Latitude || got.Longitude != before.Longitude {
		t.Errorf("MarkResolved() changed unrelated fields: got %+v, before %+v", got, before)
	}
}

func TestMarkResolved_NotFound(t *testing.T) {
	db := newTestDB(t)
	r := model.NewDraft(5, 0, 0, time.Now())
	r.ID = 999

	err := db.MarkResolved(context.Background(), &r, "bob")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("MarkResolved() error = %v, want ErrNotFound", err)
	}
}

func TestSubscribeReports(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestReport(t, db, 5, time.Now())

	sub, err := db.SubscribeReports(ctx)
	if err != nil {
		t.Fatalf("SubscribeReports() error = %v", err)
	}
	defer sub.Close()

	initial := <-sub.C()
	if len(initial) != 1 {
		t.Fatalf("initial snapshot has %d reports, want 1", len(initial))
	}

	second := createTestReport(t, db, 6, time.Now())
	afterInsert := <-sub.C()
	if len(afterInsert) != 2 {
		t.Fatalf("snapshot after insert has %d reports, want 2", len(afterInsert))
	}

	if err := db.MarkResolved(ctx, second, "bob"); err != nil {
		t.Fatalf("MarkResolved() error = %v", err)
	}
	afterResolve := <-sub.C()
	var found bool
	for _, r := range afterResolve {
		if r.ID == second.ID {
			found = true
			if r.Status != model.StatusResolved {
				t.Errorf("resolved report has status %q in snapshot", r.Status)
			}
		}
	}
	if !found {
		t.Error("resolved report missing from snapshot")
	}
}

func TestPublishReports_ReadFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	db := newTestDBWithLogger(t, slog.New(slog.NewTextHandler(&logs, nil)))
	createTestReport(t, db, 1, time.Now())

	sub, err := db.SubscribeReports(context.Background())
	if err != nil {
		t.Fatalf("SubscribeReports() error = %v", err)
	}
	defer sub.Close()
	<-sub.C() // primed snapshot

	// Break the connection so the re-read after a write fails.
	db.conn.Close()

	db.writeMu.Lock()
	db.publishReportsLocked(context.Background())
	db.writeMu.Unlock()

	out := logs.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "re-reading reports after write") {
		t.Errorf("log output = %q, want an error record for the failed re-read", out)
	}

	select {
	case got := <-sub.C():
		t.Errorf("subscriber received %d reports after a failed re-read, want nothing", len(got))
	default:
	}
}
