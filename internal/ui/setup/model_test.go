package setup

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/model"
)

type recorder struct {
	checked  []model.AppConfig
	saved    []model.AppConfig
	password string
	checkErr error
	saveErr  error
}

func (r *recorder) check(_ context.Context, cfg *model.AppConfig) error {
	r.checked = append(r.checked, *cfg)
	return r.checkErr
}

func (r *recorder) save(cfg *model.AppConfig, password string) error {
	r.saved = append(r.saved, *cfg)
	r.password = password
	return r.saveErr
}

func baseConfig() *model.AppConfig {
	return &model.AppConfig{
		SMTP:    model.ServerConfig{Host: "smtp.example.com", Port: 587},
		IMAP:    model.ServerConfig{Host: "imap.example.com", Port: 993, TLS: true},
		Account: model.AccountConfig{Address: "me@example.com", Password: "old"},
		Monitor: model.MonitorConfig{CheckIntervalSec: 300, Folder: "INBOX"},
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm, cmd
}

func TestFieldsPrefilledFromConfig(t *testing.T) {
	r := &recorder{}
	m := New(context.Background(), baseConfig(), r.check, r.save)

	assert.Equal(t, ModeForm, m.Mode())
	assert.Equal(t, "imap.example.com", m.formIMAPHost)
	assert.Equal(t, "993", m.formIMAPPort)
	assert.True(t, m.formIMAPTLS)
	assert.Equal(t, "587", m.formSMTPPort)
	assert.Equal(t, "300", m.formInterval)
	assert.Empty(t, m.formPassword)
}

func TestSubmitAppliesFieldsAndChecks(t *testing.T) {
	r := &recorder{}
	m := New(context.Background(), baseConfig(), r.check, r.save)
	m.formIMAPHost = " imap.other.com "
	m.formIMAPPort = "143"
	m.formIMAPTLS = false
	m.formInterval = "60"
	m.formNotification = "alerts@example.com"
	m.formPassword = "new-secret"

	next, cmd := m.submit()
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, ModeValidating, m.Mode())

	cfg := m.Config()
	assert.Equal(t, "imap.other.com", cfg.IMAP.Host)
	assert.Equal(t, 143, cfg.IMAP.Port)
	assert.False(t, cfg.IMAP.TLS)
	assert.Equal(t, 60, cfg.Monitor.CheckIntervalSec)
	assert.Equal(t, "alerts@example.com", cfg.NotificationEmail)

	msg := m.validate()()
	assert.Equal(t, ValidateResultMsg{}, msg)
	require.Len(t, r.checked, 1)
	assert.Equal(t, "new-secret", r.checked[0].Account.Password)
}

func TestSuccessfulCheckThenSave(t *testing.T) {
	r := &recorder{}
	m := New(context.Background(), baseConfig(), r.check, r.save)

	m, _ = update(t, m, ValidateResultMsg{})
	assert.Equal(t, ModeValidateResult, m.Mode())
	assert.Contains(t, m.View(), "Connection successful")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	assert.Equal(t, ModeSaved, m.Mode())
	assert.NotNil(t, cmd)

	require.Len(t, r.saved, 1)
	assert.Equal(t, "me@example.com", r.saved[0].Account.Address)
	assert.Empty(t, r.password)
}

func TestFailedCheckRequiresExplicitSave(t *testing.T) {
	r := &recorder{}
	m := New(context.Background(), baseConfig(), r.check, r.save)

	m, _ = update(t, m, ValidateResultMsg{Err: errors.New("login rejected")})
	assert.Contains(t, m.View(), "Connection failed")
	assert.Contains(t, m.View(), "login rejected")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, r.saved)

	_, cmd = update(t, m, keyPress('s'))
	require.NotNil(t, cmd)
	cmd()
	assert.Len(t, r.saved, 1)
}

func TestSaveFailureShown(t *testing.T) {
	r := &recorder{saveErr: errors.New("disk full")}
	m := New(context.Background(), baseConfig(), r.check, r.save)

	m, _ = update(t, m, ValidateResultMsg{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())
	assert.Equal(t, ModeValidateResult, m.Mode())
	assert.Contains(t, m.View(), "disk full")
}

func TestRetryAndEdit(t *testing.T) {
	r := &recorder{}
	m := New(context.Background(), baseConfig(), r.check, r.save)

	m, _ = update(t, m, ValidateResultMsg{Err: errors.New("timeout")})
	m, cmd := update(t, m, keyPress('r'))
	assert.Equal(t, ModeValidating, m.Mode())
	assert.NotNil(t, cmd)

	m, _ = update(t, m, ValidateResultMsg{Err: errors.New("timeout")})
	m, cmd = update(t, m, keyPress('e'))
	assert.Equal(t, ModeForm, m.Mode())
	assert.NotNil(t, cmd)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort(""))
	assert.Error(t, validatePort("abc"))
	assert.Error(t, validatePort("70000"))

	assert.NoError(t, validatePositive("5"))
	assert.Error(t, validatePositive("0"))
	assert.Error(t, validatePositive("-1"))

	assert.NoError(t, validateRequired("Host")("x"))
	assert.EqualError(t, validateRequired("Host")("  "), "Host is required")
}
