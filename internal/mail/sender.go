// Package mail abstracts the transactional email collaborator. Delivery is
// always queued through the email outbox; the Sender is only ever called by
// the mailer worker.
package mail

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
