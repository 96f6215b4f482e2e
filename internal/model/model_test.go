package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"Reported", StatusReported, false},
		{"Resolved", StatusResolved, false},
		{"reported", "", true},
		{"", "", true},
		{"Closed", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusCompare(t *testing.T) {
	if StatusReported.Compare(StatusResolved) >= 0 {
		t.Error("Reported should sort before Resolved")
	}
	if StatusResolved.Compare(StatusReported) <= 0 {
		t.Error("Resolved should sort after Reported")
	}
	if StatusReported.Compare(StatusReported) != 0 {
		t.Error("equal statuses should compare as 0")
	}
}

func TestStatusScan(t *testing.T) {
	var s Status
	if err := s.Scan([]byte("Resolved")); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if s != StatusResolved {
		t.Errorf("Scan() = %q, want %q", s, StatusResolved)
	}
	if err := s.Scan("Pending"); err == nil {
		t.Error("Scan() should reject unknown tags")
	}
	if err := s.Scan(int64(1)); err == nil {
		t.Error("Scan() should reject non-string values")
	}
}

func TestStatusUnmarshalJSON(t *testing.T) {
	var r Report
	if err := json.Unmarshal([]byte(`{"status":"Reported"}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Status != StatusReported {
		t.Errorf("Status = %q, want %q", r.Status, StatusReported)
	}
	if err := json.Unmarshal([]byte(`{"status":"done"}`), &r); err == nil {
		t.Error("Unmarshal() should reject unknown status")
	}
}

func TestRoleUnmarshalJSON(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"role":"Admin"}`), &u); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !u.IsAdmin() {
		t.Error("IsAdmin() = false, want true")
	}
	if err := json.Unmarshal([]byte(`{"role":"root"}`), &u); err == nil {
		t.Error("Unmarshal() should reject unknown role")
	}
}

func TestIsAdmin_NilUser(t *testing.T) {
	var u *User
	if u.IsAdmin() {
		t.Error("nil user must not be admin")
	}
}

func TestNewDraft(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDraft(5, 38.7, -9.1, now)

	if d.ID != 0 {
		t.Errorf("ID = %d, want 0", d.ID)
	}
	if d.Status != StatusReported {
		t.Errorf("Status = %q, want %q", d.Status, StatusReported)
	}
	if d.ImagePath != "" {
		t.Errorf("ImagePath = %q, want empty", d.ImagePath)
	}
	if d.AdminName != nil || d.ResolvedAt != nil {
		t.Error("a new draft must not carry resolution fields")
	}
	if !d.ReportedAt.Equal(now) {
		t.Errorf("ReportedAt = %v, want %v", d.ReportedAt, now)
	}
}

func TestResolve_OnlyTouchesResolutionFields(t *testing.T) {
	reported := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	resolved := reported.Add(2 * time.Hour)

	r := NewDraft(5, 1.5, 2.5, reported)
	r.ID = 11
	r.ImagePath = "/media/a.jpg"
	before := r

	r.Resolve("bob", resolved)

	if r.Status != StatusResolved {
		t.Errorf("Status = %q, want %q", r.Status, StatusResolved)
	}
	if r.AdminName == nil || *r.AdminName != "bob" {
		t.Errorf("AdminName = %v, want bob", r.AdminName)
	}
	if r.ResolvedAt == nil || !r.ResolvedAt.Equal(resolved) {
		t.Errorf("ResolvedAt = %v, want %v", r.ResolvedAt, resolved)
	}

	r.Status, r.AdminName, r.ResolvedAt = before.Status, before.AdminName, before.ResolvedAt
	if r != before {
		t.Errorf("Resolve() changed other fields: got %+v, want %+v", r, before)
	}
}
