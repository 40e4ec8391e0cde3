// Package models defines data structures used throughout the talent assessment application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User roles. Participants take assessments; admins administer programs.
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// User represents a person in the system: staff or assessment participant
type User struct {
	ID           int            `json:"id" yaml:"id"`
	ClientID     sql.NullInt32  `json:"client_id" yaml:"client_id"`
	GroupID      sql.NullInt32  `json:"group_id" yaml:"group_id"`
	Email        string         `json:"email" yaml:"email"`
	Name         string         `json:"name" yaml:"name"`
	Role         string         `json:"role" yaml:"role"`
	PasswordHash sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Client represents an organization running assessment programs
type Client struct {
	ID           int           `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	IndustryID   sql.NullInt32 `json:"industry_id" yaml:"industry_id"`
	ContactEmail string        `json:"contact_email" yaml:"contact_email"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"updated_at"`
}

// Group represents a population within a client (team, cohort)
type Group struct {
	ID        int       `json:"id" yaml:"id"`
	ClientID  int       `json:"client_id" yaml:"client_id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Industry represents a lookup row referenced by clients and benchmarks
type Industry struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// MarshalJSON customizes JSON marshaling for User to handle nullable columns properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID        int       `json:"id"`
		ClientID  *int32    `json:"client_id"`
		GroupID   *int32    `json:"group_id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		Role      string    `json:"role"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{
		ID:        u.ID,
		ClientID:  nullInt32ToPointer(u.ClientID),
		GroupID:   nullInt32ToPointer(u.GroupID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
}

// MarshalJSON customizes JSON marshaling for Client to handle the nullable industry
func (c Client) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int       `json:"id"`
		Name         string    `json:"name"`
		IndustryID   *int32    `json:"industry_id"`
		ContactEmail string    `json:"contact_email"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}{
		ID:           c.ID,
		Name:         c.Name,
		IndustryID:   nullInt32ToPointer(c.IndustryID),
		ContactEmail: c.ContactEmail,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	})
}

// Helper functions to convert sql.Null* types to pointers for JSON marshaling

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt32ToPointer(ni sql.NullInt32) *int32 {
	if ni.Valid {
		return &ni.Int32
	}
	return nil
}

func nullFloat64ToPointer(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}
