package model

import "time"

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "Active"
	SessionStatusEnded  SessionStatus = "Ended"
	// SessionStatusFailed exists in the schema but is only ever written by
	// operators or external tooling; no code path in this service sets it.
	SessionStatusFailed SessionStatus = "Failed"
)

type ProxySession struct {
	ID        int64         `db:"id" json:"id"`
	UserID    int64         `db:"user_id" json:"user_id"`
	StartTime time.Time     `db:"start_time" json:"start_time"`
	EndTime   *time.Time    `db:"end_time" json:"end_time"`
	IPAddress *string       `db:"ip_address" json:"ip_address"`
	Status    SessionStatus `db:"status" json:"status"`
}

type ProxySettings struct {
	ID                        int64     `db:"id" json:"id,omitempty"`
	UserID                    int64     `db:"user_id" json:"user_id"`
	EnablePaymentFilter       bool      `db:"enable_payment_filter" json:"enable_payment_filter"`
	AutoApproval              bool      `db:"auto_approval" json:"auto_approval"`
	BraveCertificateInstalled bool      `db:"brave_certificate_installed" json:"brave_certificate_installed"`
	LastUpdated               time.Time `db:"last_updated" json:"last_updated,omitempty"`
}

// DefaultSettings is the non-persisted triple handed out when a user has no
// settings row: filter on, manual approval, certificate not installed.
func DefaultSettings(userID int64) *ProxySettings {
	return &ProxySettings{
		UserID:              userID,
		EnablePaymentFilter: true,
	}
}
