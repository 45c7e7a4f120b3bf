package monitor

import (
	"fmt"
	"strings"

	"github.com/nhle/mailwatch/internal/model"
)

// notificationPreviewLimit bounds the preview quoted in an alert.
const notificationPreviewLimit = 200

// ComposeNotification builds the alert subject and body for a message
// that matched the named rules.
func ComposeNotification(matched []string, msg model.InboundMessage) (subject, body string) {
	names := strings.Join(matched, ", ")

	preview := msg.BodyPreview
	if r := []rune(preview); len(r) > notificationPreviewLimit {
		preview = string(r[:notificationPreviewLimit])
	}

	subject = "Email Alert: " + names
	body = fmt.Sprintf(
		"New email matching notification rules: %s\n\nFrom: %s\nSubject: %s\n\nPreview:\n%s...\n",
		names, msg.Sender, msg.Subject, preview,
	)
	return subject, body
}
