package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Role decides what an actor may see and do.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole converts a stored or submitted tag into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("model: unknown role %q", s)
}

func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Role", src)
	}
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// User is an actor: someone who can sign in and either file reports (RoleUser)
// or review and resolve everyone's reports (RoleAdmin).
//
// Usernames are unique; the users table enforces it with a UNIQUE constraint.
// A user is never modified after registration.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// IsAdmin reports whether u may resolve reports.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
