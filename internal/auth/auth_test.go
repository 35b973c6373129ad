package auth

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashB64(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(h)
}

func newManager(t *testing.T, hash string) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m, err := NewManager(ctx, hash)
	require.NoError(t, err)
	return m
}

func TestManager_Disabled(t *testing.T) {
	m := newManager(t, "")
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Authorize(httptest.NewRequest("POST", "/print", nil)))
}

func TestNewManager_RejectsBadHash(t *testing.T) {
	_, err := NewManager(context.Background(), "%%%")
	assert.Error(t, err)
	_, err = NewManager(context.Background(), base64.StdEncoding.EncodeToString([]byte("plain")))
	assert.Error(t, err)
}

func TestManager_Authorize(t *testing.T) {
	m := newManager(t, hashB64(t, "s3cret"))

	req := httptest.NewRequest("POST", "/print", nil)
	assert.ErrorIs(t, m.Authorize(req), ErrMissingToken)

	req.Header.Set(TokenHeader, "s3cret")
	assert.NoError(t, m.Authorize(req))

	bearer := httptest.NewRequest("POST", "/print", nil)
	bearer.Header.Set("Authorization", "Bearer s3cret")
	assert.NoError(t, m.Authorize(bearer))

	ws := httptest.NewRequest("GET", "/ws?token=s3cret", nil)
	assert.NoError(t, m.Authorize(ws))

	wrong := httptest.NewRequest("POST", "/print", nil)
	wrong.Header.Set(TokenHeader, "nope")
	assert.ErrorIs(t, m.Authorize(wrong), ErrInvalidToken)
}

func TestManager_Lockout(t *testing.T) {
	m := newManager(t, hashB64(t, "s3cret"))
	now := time.Now()
	m.now = func() time.Time { return now }

	bad := httptest.NewRequest("POST", "/print", nil)
	bad.RemoteAddr = "192.0.2.10:5000"
	bad.Header.Set(TokenHeader, "nope")
	for i := 0; i < MaxTokenAttempts; i++ {
		assert.ErrorIs(t, m.Authorize(bad), ErrInvalidToken)
	}

	good := httptest.NewRequest("POST", "/print", nil)
	good.RemoteAddr = "192.0.2.10:5001"
	good.Header.Set(TokenHeader, "s3cret")
	assert.ErrorIs(t, m.Authorize(good), ErrLockedOut)

	other := httptest.NewRequest("POST", "/print", nil)
	other.RemoteAddr = "192.0.2.11:5000"
	other.Header.Set(TokenHeader, "s3cret")
	assert.NoError(t, m.Authorize(other))

	now = now.Add(LockoutDuration + time.Second)
	m.sweep()
	assert.False(t, m.IsLockedOut("192.0.2.10"))
	assert.NoError(t, m.Authorize(good))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::1]:1234"
	assert.Equal(t, "::1", ClientIP(r))
	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientIP(r))
}
