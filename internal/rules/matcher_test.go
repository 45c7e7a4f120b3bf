package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/mailwatch/internal/model"
)

func msg(sender, subject, body string) model.InboundMessage {
	return model.InboundMessage{Sender: sender, Subject: subject, BodyPreview: body}
}

func TestMatchesSenderOnly(t *testing.T) {
	rule := model.NotificationRule{Name: "from alice", SenderFilter: "Alice"}

	tests := []struct {
		name string
		msg  model.InboundMessage
		want bool
	}{
		{"exact address", msg("alice@x.com", "fyi", "hello"), true},
		{"display name", msg(`"ALICE Smith" <as@x.com>`, "", ""), true},
		{"other sender with matching subject", msg("bob@x.com", "alice said", "alice"), false},
		{"empty sender", msg("", "alice", "alice"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(rule, tt.msg))
		})
	}
}

func TestCatchAllMatchesEverything(t *testing.T) {
	rule := model.NotificationRule{Name: "all"}

	assert.True(t, Matches(rule, msg("", "", "")))
	assert.True(t, Matches(rule, msg("anyone@example.com", "anything", "whatever")))
}

func TestMatchesIsConjunctive(t *testing.T) {
	rule := model.NotificationRule{
		Name:          "alice urgent",
		SenderFilter:  "alice",
		SubjectFilter: "urgent",
	}

	assert.False(t, Matches(rule, msg("alice@x.com", "fyi", "")))
	assert.False(t, Matches(rule, msg("bob@x.com", "urgent", "")))
	assert.True(t, Matches(rule, msg("alice@x.com", "URGENT: call me", "")))

	withKeyword := rule
	withKeyword.KeywordFilter = "invoice"
	assert.False(t, Matches(withKeyword, msg("alice@x.com", "urgent", "see attached")))
	assert.True(t, Matches(withKeyword, msg("alice@x.com", "urgent", "Your Invoice is ready")))
}

func TestEvaluateAllPreservesRuleOrder(t *testing.T) {
	rules := []model.NotificationRule{
		{Name: "catch-all"},
		{Name: "billing", KeywordFilter: "invoice"},
		{Name: "urgent", SubjectFilter: "urgent"},
		{Name: "boss", SenderFilter: "boss@corp.com"},
	}

	got := EvaluateAll(rules, msg("boss@corp.com", "URGENT: deadline", "please respond today"))
	assert.Equal(t, []string{"catch-all", "urgent", "boss"}, got)

	assert.Empty(t, EvaluateAll(nil, msg("a", "b", "c")))
	assert.Empty(t, EvaluateAll(rules[1:2], msg("a", "b", "c")))
}
