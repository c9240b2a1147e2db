package mail

import "context"

// Message is a single outgoing email. All recipients are addressed in one send.
type Message struct {
	Subject  string
	From     string
	To       []string
	TextBody string
	HTMLBody string // sent as a text/html alternative when non-empty
}

// Sender defines an interface for delivering email.
// This keeps the notification logic independent of the SMTP library.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
