package models

import "time"

// OTPCode is an issued one-time code. Rows are never deleted; a code is
// logically dead once consumed or past Expiry. Verification always selects
// the most recently issued unconsumed row for a user.
type OTPCode struct {
	ID       int64
	UserID   int64
	Code     string
	Expiry   time.Time
	Consumed bool
}
