package model

import "time"

type TrafficLog struct {
	ID               int64     `db:"id" json:"id"`
	SessionID        int64     `db:"session_id" json:"session_id"`
	Timestamp        time.Time `db:"timestamp" json:"timestamp"`
	URL              string    `db:"url" json:"url"`
	Method           string    `db:"method" json:"method"`
	StatusCode       int       `db:"status_code" json:"status_code"`
	ContentType      string    `db:"content_type" json:"content_type"`
	Size             int64     `db:"size" json:"size"`
	IsPaymentRelated bool      `db:"is_payment_related" json:"is_payment_related"`
	IsApproved       *bool     `db:"is_approved" json:"is_approved"`
}
