package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/mailwatch/internal/model"
)

func TestRenderStats(t *testing.T) {
	out := RenderStats(model.Stats{Sent: 2, Failed: 1, Monitored: 0})
	assert.Contains(t, out, "Email Statistics")
	assert.Contains(t, out, "Sent emails:")
	assert.Contains(t, out, "2")
	assert.Contains(t, out, "Failed emails:")
	assert.Contains(t, out, "Monitored emails:")
}

func TestRenderRules(t *testing.T) {
	assert.Contains(t, RenderRules(nil), "No notification rules")

	out := RenderRules([]model.NotificationRule{
		{ID: 1, Name: "boss", SenderFilter: "boss@corp.com", Enabled: true},
		{ID: 2, Name: "all", Enabled: false},
		{ID: 3, Name: "urgent invoices", SubjectFilter: "urgent", KeywordFilter: "invoice", Enabled: true},
	})
	assert.Contains(t, out, `sender~"boss@corp.com"`)
	assert.Contains(t, out, "matches every message")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, `subject~"urgent" AND body~"invoice"`)
}

func TestRenderSent(t *testing.T) {
	assert.Contains(t, RenderSent(nil), "No emails sent yet")

	out := RenderSent([]model.SentEmail{
		{ID: 2, Recipient: "b@example.com", Subject: "two", Status: model.SendStatusFailed,
			ErrorMessage: "550 mailbox unavailable", SentAt: time.Now()},
		{ID: 1, Recipient: "a@example.com", Subject: "one", Status: model.SendStatusSent, SentAt: time.Now()},
	})
	assert.Contains(t, out, "b@example.com")
	assert.Contains(t, out, "550 mailbox unavailable")
	assert.Contains(t, out, "a@example.com")
}
