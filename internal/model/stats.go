package model

import "time"

// DailyStats rows are additive counters keyed by (user_id, date). Monthly
// aggregates reuse the same shape with Date set to the first of the month.
type DailyStats struct {
	ID                    int64     `db:"id" json:"id,omitempty"`
	UserID                int64     `db:"user_id" json:"user_id"`
	Date                  time.Time `db:"date" json:"date"`
	RequestsCount         int64     `db:"requests_count" json:"requests_count"`
	BlockedPaymentsCount  int64     `db:"blocked_payments_count" json:"blocked_payments_count"`
	ApprovedPaymentsCount int64     `db:"approved_payments_count" json:"approved_payments_count"`
	DataTransferred       int64     `db:"data_transferred" json:"data_transferred"`
}
