package model

import "time"

// SendStatus is the outcome of a single outbound send attempt.
type SendStatus string

const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// SentEmail is the audit record written for every outbound send attempt,
// successful or not. Records are immutable once written.
type SentEmail struct {
	// ID is the store-assigned auto-increment identifier.
	ID int64 `json:"id"`

	// Recipient is the address the message was addressed to.
	Recipient string `json:"recipient"`

	// Subject is the subject line as sent.
	Subject string `json:"subject"`

	// SentAt is when the attempt was recorded.
	SentAt time.Time `json:"sent_at"`

	// Status is sent or failed.
	Status SendStatus `json:"status"`

	// ErrorMessage is set if and only if Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`
}
