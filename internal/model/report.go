// Package model defines the data structures used throughout the application.
//
// Enumerated fields (Status, Role) are closed string types: JSON decoding and
// SQL scanning reject anything outside the declared tags, so a free-form string
// can never reach the service layer.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusReported Status = "Reported"
	StatusResolved Status = "Resolved"
)

// ParseStatus converts a stored or submitted tag into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusReported, StatusResolved:
		return st, nil
	}
	return "", fmt.Errorf("model: unknown report status %q", s)
}

// Compare orders statuses by the natural (lexical) order of their tags,
// which puts Reported before Resolved.
func (s Status) Compare(other Status) int {
	return strings.Compare(string(s), string(other))
}

func (s Status) Value() (driver.Value, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Status", src)
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Report is a trash problem pinned to a location.
//
// AdminName and ResolvedAt are nil while Status is Reported and are set
// together by Resolve. ID and ReportedAt never change once assigned.
type Report struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	ImagePath  string     `json:"imagePath"` // "" until a photo is attached
	Status     Status     `json:"status"`
	AdminName  *string    `json:"adminName,omitempty"`
	ReportedAt time.Time  `json:"reportedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
}

// NewDraft builds an unsaved report for a pin dropped by userID.
func NewDraft(userID int64, latitude, longitude float64, now time.Time) Report {
	return Report{
		UserID:     userID,
		Status:     StatusReported,
		ReportedAt: now,
		Latitude:   latitude,
		Longitude:  longitude,
	}
}

// Resolve moves the report to Resolved, recording who resolved it and when.
// No other field is touched.
func (r *Report) Resolve(adminName string, at time.Time) {
	r.Status = StatusResolved
	r.AdminName = &adminName
	r.ResolvedAt = &at
}
