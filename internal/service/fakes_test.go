package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests easy to read: you can see
// exactly what the fake does.
type fakeUserRepo struct {
	mu     sync.Mutex
	byName map[string]*model.User
	nextID int64
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byName: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byName[user.Username]; ok {
		return apperror.UsernameTaken(user.Username)
	}
	user.ID = f.nextID
	f.nextID++
	copied := *user
	f.byName[user.Username] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byName)
}

// fakeReportRepo is an in-memory repository.ReportRepository.
type fakeReportRepo struct {
	mu      sync.Mutex
	rows    []model.Report
	nextID  int64
	feed    *feed.Broadcaster[[]model.Report]
	now     time.Time
	failErr error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		nextID: 1,
		feed:   feed.New[[]model.Report](),
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeReportRepo) UpsertReport(ctx context.Context, r *model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if r.ID == 0 {
		r.ID = f.nextID
		f.nextID++
		f.rows = append(f.rows, *r)
	} else {
		f.replaceLocked(*r)
	}
	f.feed.Publish(f.snapshotLocked())
	return nil
}

func (f *fakeReportRepo) MarkResolved(ctx context.Context, r *model.Report, resolvedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Resolve(resolvedBy, f.now)
	if f.failErr != nil {
		return f.failErr
	}
	if !f.replaceLocked(*r) {
		return apperror.NotFound("report", strconv.FormatInt(r.ID, 10))
	}
	f.feed.Publish(f.snapshotLocked())
	return nil
}

func (f *fakeReportRepo) AllReports(ctx context.Context) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(), nil
}

func (f *fakeReportRepo) SubscribeReports(ctx context.Context) (*feed.Subscription[[]model.Report], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feed.SubscribeFrom(f.snapshotLocked()), nil
}

func (f *fakeReportRepo) replaceLocked(r model.Report) bool {
	for i := range f.rows {
		if f.rows[i].ID == r.ID {
			f.rows[i] = r
			return true
		}
	}
	return false
}

func (f *fakeReportRepo) snapshotLocked() []model.Report {
	out := make([]model.Report, len(f.rows))
	copy(out, f.rows)
	return out
}

// fakePhotos records what was saved and hands out sequential paths.
type fakePhotos struct {
	saved [][]byte
	err   error
}

func (f *fakePhotos) Save(ctx context.Context, src io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, b)
	return "/media/photo-" + strconv.Itoa(len(f.saved)) + ".jpg", nil
}

var errDatabaseOnFire = errors.New("database is on fire")

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
