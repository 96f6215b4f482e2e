package report

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/trashwatch/internal/feed"
	"github.com/sakif/trashwatch/internal/model"
)

// ActorSource is the observable current actor of one session.
// session.Holder implements it.
type ActorSource interface {
	// Watch calls fn with the current actor and then on every change.
	// The returned func stops the notifications.
	Watch(fn func(*model.User)) (unwatch func())
}

// View is the live, derived report list of one session.
//
// It owns the three inputs of Visible (raw collection, actor, sort flag) and
// recomputes the derived list whenever any of them changes. Every derived
// list is also published to subscribers of the view, which is what the SSE
// stream consumes.
type View struct {
	mu           sync.Mutex
	actor        *model.User
	sortByStatus bool
	raw          []model.Report
	derived      []model.Report

	out    *feed.Broadcaster[[]model.Report]
	logger *slog.Logger
}

// NewView returns an empty view with status sorting on.
func NewView(logger *slog.Logger) *View {
	return &View{
		sortByStatus: true,
		derived:      []model.Report{},
		out:          feed.New[[]model.Report](),
		logger:       logger,
	}
}

// Bind makes the view follow actors. The view recomputes immediately with the
// current actor.
func (v *View) Bind(actors ActorSource) (unbind func()) {
	return actors.Watch(v.SetActor)
}

// Prime consumes the value a fresh store subscription is primed with, so the
// view is populated before the first request reads it.
func (v *View) Prime(sub *feed.Subscription[[]model.Report]) {
	select {
	case reports, ok := <-sub.C():
		if ok {
			v.setRaw(reports)
		}
	default:
	}
}

// Run applies every collection emitted by sub until ctx is done or sub is
// closed. It closes sub on return.
func (v *View) Run(ctx context.Context, sub *feed.Subscription[[]model.Report]) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case reports, ok := <-sub.C():
			if !ok {
				return
			}
			v.setRaw(reports)
		}
	}
}

// SetActor replaces the actor input.
func (v *View) SetActor(actor *model.User) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.actor = actor
	v.recomputeLocked()
}

// ToggleSort flips the sort flag and returns its new value.
func (v *View) ToggleSort() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sortByStatus = !v.sortByStatus
	v.recomputeLocked()
	return v.sortByStatus
}

// SortByStatus returns the current sort flag.
func (v *View) SortByStatus() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sortByStatus
}

// Reports returns a copy of the last derived list.
func (v *View) Reports() []model.Report {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneReports(v.derived)
}

// Snapshot returns the sort flag and the derived list it produced, read together.
func (v *View) Snapshot() (sortByStatus bool, reports []model.Report) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sortByStatus, cloneReports(v.derived)
}

// FindByID looks id up in the last derived list. Reports the actor cannot see
// are never found, even if they exist in the store.
func (v *View) FindByID(id int64) (model.Report, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, r := range v.derived {
		if r.ID == id {
			return r, true
		}
	}
	return model.Report{}, false
}

// Subscribe returns a subscription to derived lists, primed with the current one.
func (v *View) Subscribe() *feed.Subscription[[]model.Report] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.out.SubscribeFrom(cloneReports(v.derived))
}

// Close ends every subscription to the view. Their channels are closed after
// any pending list is delivered.
func (v *View) Close() {
	v.out.Close()
}

func (v *View) setRaw(reports []model.Report) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.raw = reports
	v.recomputeLocked()
}

// recomputeLocked runs the policy and publishes the result. Publishing under
// v.mu keeps subscribers in the same order as the recomputations.
func (v *View) recomputeLocked() {
	v.derived = Visible(v.raw, v.actor, v.sortByStatus)
	v.out.Publish(cloneReports(v.derived))

	v.logger.Debug("report view recomputed",
		slog.Int("visible", len(v.derived)),
		slog.Int("total", len(v.raw)),
		slog.Bool("sortByStatus", v.sortByStatus),
	)
}

func cloneReports(in []model.Report) []model.Report {
	out := make([]model.Report, len(in))
	copy(out, in)
	return out
}
