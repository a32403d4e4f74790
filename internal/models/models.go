package models

import (
	"time"

	"go.uber.org/zap/zapcore"
)

type SiteStatus string

const (
	SitePending  SiteStatus = "pending"
	SiteApproved SiteStatus = "approved"
	SiteDenied   SiteStatus = "denied"
)

func (s SiteStatus) Valid() bool {
	switch s {
	case SitePending, SiteApproved, SiteDenied:
		return true
	}
	return false
}

// Decision is the approval or denial recorded for a site. Reason is only
// set for denials. AdminID is nil once the deciding admin is deleted.
type Decision struct {
	ID      string    `json:"id"`
	AdminID *int64    `json:"admin_id,omitempty"`
	At      time.Time `json:"at"`
	Reason  string    `json:"reason,omitempty"`
}

// Site carries exactly one Status; Decision is nil while pending and
// describes the approval or the denial otherwise.
type Site struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	Status    SiteStatus `json:"status"`
	Decision  *Decision  `json:"decision,omitempty"`
}

type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MarshalLogObject keeps the password hash out of logs.
func (a Admin) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("id", a.ID)
	enc.AddString("username", a.Username)
	enc.AddString("email", a.Email)
	enc.AddString("password_hash", "[redacted]")
	return nil
}

type Session struct {
	ID            string
	AdminID       int64
	TokenHash     string
	IPHint        string
	UserAgentHash string
	ExpiresAt     time.Time
	IdleExpiresAt time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
}
