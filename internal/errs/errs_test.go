package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := fmt.Errorf("running pass: %w", New(Connection, "imap dial", base))

	assert.True(t, Is(err, Connection))
	assert.False(t, Is(err, Auth))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, Connection, KindOf(err))
}

func TestIsSeesNestedKinds(t *testing.T) {
	inner := New(Auth, "smtp auth", errors.New("535 bad credentials"))
	outer := New(TransientSend, "send notification", inner)

	assert.True(t, Is(outer, TransientSend))
	assert.True(t, Is(outer, Auth))
	assert.Equal(t, TransientSend, KindOf(outer))
}

func TestErrorString(t *testing.T) {
	err := Newf(Config, "validate", "%s must be set", "EMAIL_ADDRESS")
	assert.Equal(t, "config error: validate: EMAIL_ADDRESS must be set", err.Error())
	assert.Equal(t, "store error", (&Error{Kind: Store}).Error())
	assert.False(t, Is(errors.New("plain"), Store))
	assert.Equal(t, Kind(0), KindOf(nil))
}
