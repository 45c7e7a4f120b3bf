package source

import "context"

// Source opens sessions against an inbound mailbox.
type Source interface {
	// Connect dials and authenticates. Failures are classified as
	// errs.Connection or errs.Auth.
	Connect(ctx context.Context) (Session, error)
}

// Session is an authenticated connection to an inbound mailbox. Message
// ids are opaque strings native to the source and are only valid for the
// selected folder.
type Session interface {
	// Select opens folder for the following calls.
	Select(ctx context.Context, folder string) error

	// SearchUnseen returns the ids of unread messages in source order.
	SearchUnseen(ctx context.Context) ([]string, error)

	// Fetch returns the raw RFC 5322 bytes of a message without marking
	// it read.
	Fetch(ctx context.Context, id string) ([]byte, error)

	// MarkRead sets the read flag on a message.
	MarkRead(ctx context.Context, id string) error

	// Close ends the session.
	Close() error
}
