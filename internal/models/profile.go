package models

import "time"

const (
	DefaultInstitution = "Elite Institute"
	DefaultBatch       = "2026"
	DefaultTerm        = "2"
	DefaultTheme       = "dark"
)

// Profile carries the personal data captured at registration.
type Profile struct {
	UserID      string    `json:"-"`
	Institution string    `json:"institution"`
	Batch       string    `json:"batch"`
	Term        string    `json:"term"`
	Theme       string    `json:"theme"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WithDefaults fills empty fields.
func (p Profile) WithDefaults() Profile {
	if p.Institution == "" {
		p.Institution = DefaultInstitution
	}
	if p.Batch == "" {
		p.Batch = DefaultBatch
	}
	if p.Term == "" {
		p.Term = DefaultTerm
	}
	if p.Theme == "" {
		p.Theme = DefaultTheme
	}
	return p
}
