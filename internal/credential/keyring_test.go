package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailwatch/internal/model"
)

func TestPasswordRoundTrip(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Password("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetPassword("me@example.com", "app-password"))

	got, err := s.Password("me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "app-password", got)

	require.NoError(t, s.DeletePassword("me@example.com"))
	_, err = s.Password("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFillPassword(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, s.SetPassword("me@example.com", "from-keyring"))

	t.Run("fills missing password", func(t *testing.T) {
		cfg := &model.AppConfig{Account: model.AccountConfig{Address: "me@example.com"}}
		filled, err := s.FillPassword(cfg)
		require.NoError(t, err)
		assert.True(t, filled)
		assert.Equal(t, "from-keyring", cfg.Account.Password)
	})

	t.Run("keeps configured password", func(t *testing.T) {
		cfg := &model.AppConfig{Account: model.AccountConfig{Address: "me@example.com", Password: "env"}}
		filled, err := s.FillPassword(cfg)
		require.NoError(t, err)
		assert.False(t, filled)
		assert.Equal(t, "env", cfg.Account.Password)
	})

	t.Run("unknown account leaves password empty", func(t *testing.T) {
		cfg := &model.AppConfig{Account: model.AccountConfig{Address: "other@example.com"}}
		filled, err := s.FillPassword(cfg)
		require.NoError(t, err)
		assert.False(t, filled)
		assert.Empty(t, cfg.Account.Password)
	})
}
