// Package report holds the per-session side of the report lifecycle: the
// visibility and ordering policy, the live View that applies it, and the
// draft slot a user fills in before saving.
//
// The data flow for one session looks like this:
//
//	store subscription ──┐
//	actor (Holder)     ──┼──▶ View.recompute ──▶ Visible(...) ──▶ derived list ──▶ SSE / GET /api/reports
//	sort flag          ──┘
package report

import (
	"slices"

	"github.com/sakif/trashwatch/internal/model"
)

// Visible derives the list an actor is allowed to see, in display order.
//
// FILTER:
//   - RoleUser    → only reports whose UserID equals the actor's ID
//   - RoleAdmin   → everything
//   - nil actor   → everything (no one is signed in, nothing is hidden)
//
// ORDER (stable, both keys ascending):
//   - primary:   Status, only when sortByStatus is true
//   - secondary: ReportedAt, always
//
// Reports equal on every applied key keep their relative order from the input.
// The input slice is never modified.
func Visible(reports []model.Report, actor *model.User, sortByStatus bool) []model.Report {
	out := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		if actor != nil && actor.Role == model.RoleUser && r.UserID != actor.ID {
			continue
		}
		out = append(out, r)
	}

	slices.SortStableFunc(out, func(a, b model.Report) int {
		if sortByStatus {
			if c := a.Status.Compare(b.Status); c != 0 {
				return c
			}
		}
		return a.ReportedAt.Compare(b.ReportedAt)
	})
	return out
}
