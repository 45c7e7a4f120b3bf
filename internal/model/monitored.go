package model

import "time"

// MonitoredEmail is the durable record of an inbound message processed by
// the monitor loop.
type MonitoredEmail struct {
	ID          int64     `json:"id"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	ReceivedAt  time.Time `json:"received_at"`
	BodyPreview string    `json:"body_preview"`

	// NotificationSent flips to true once, when a notification for this
	// message was dispatched. It never flips back.
	NotificationSent bool `json:"notification_sent"`
}

// InboundMessage is the metadata extracted from a raw inbound message
// that rules are evaluated against.
type InboundMessage struct {
	Sender      string
	Subject     string
	BodyPreview string
}
