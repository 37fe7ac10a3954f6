// Package mail provides the outbound-notification capability used for
// one-time code delivery. Failures here are reported to the caller, which
// logs them and continues: code issuance never fails because mail did.
package mail

import "context"

// Mailer sends a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
