// Package auth provides API token validation and brute-force protection for
// the local print endpoints.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adcondev/print-bridge/internal/logging"
)

const (
	TokenHeader      = "X-Print-Token"
	TokenQueryParam  = "token"
	MaxTokenAttempts = 5
	LockoutDuration  = 5 * time.Minute
	CleanupInterval  = 5 * time.Minute
)

var (
	ErrMissingToken = errors.New("API token required")
	ErrInvalidToken = errors.New("invalid API token")
	ErrLockedOut    = errors.New("too many failed attempts, try again later")
)

type failInfo struct {
	count       int
	lockedUntil time.Time
}

// Manager validates API tokens and throttles clients that keep failing.
type Manager struct {
	hash     []byte
	failures map[string]failInfo
	mu       sync.RWMutex
	now      func() time.Time
}

// NewManager creates an auth manager with a cleanup goroutine bound to ctx.
// hashB64 is a base64-encoded bcrypt hash; empty disables token checks.
func NewManager(ctx context.Context, hashB64 string) (*Manager, error) {
	m := &Manager{
		failures: make(map[string]failInfo),
		now:      time.Now,
	}
	if hashB64 != "" {
		hash, err := base64.StdEncoding.DecodeString(hashB64)
		if err != nil {
			return nil, errors.New("token hash is not valid base64")
		}
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, errors.New("token hash is not a bcrypt hash")
		}
		m.hash = hash
	}
	go m.cleanupLoop(ctx)
	logging.Info("Auth manager initialized", "enabled", m.Enabled())
	return m, nil
}

// Enabled returns true if a token hash was configured.
func (m *Manager) Enabled() bool {
	return len(m.hash) > 0
}

// ValidateToken compares token against the configured hash.
func (m *Manager) ValidateToken(token string) bool {
	if !m.Enabled() {
		return true
	}
	return bcrypt.CompareHashAndPassword(m.hash, []byte(token)) == nil
}

// Authorize checks the request's token and tracks failures per client IP.
func (m *Manager) Authorize(r *http.Request) error {
	if !m.Enabled() {
		return nil
	}
	ip := ClientIP(r)
	if m.IsLockedOut(ip) {
		return ErrLockedOut
	}
	token := TokenFromRequest(r)
	if token == "" {
		return ErrMissingToken
	}
	if !m.ValidateToken(token) {
		m.RecordFailure(ip)
		return ErrInvalidToken
	}
	m.ClearFailures(ip)
	return nil
}

// IsLockedOut returns true if the IP has exceeded MaxTokenAttempts.
func (m *Manager) IsLockedOut(ip string) bool {
	m.mu.RLock()
	info, exists := m.failures[ip]
	m.mu.RUnlock()
	if !exists {
		return false
	}
	return info.count >= MaxTokenAttempts && m.now().Before(info.lockedUntil)
}

// RecordFailure increments the failure counter for an IP.
func (m *Manager) RecordFailure(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.failures[ip]
	info.count++
	if info.count >= MaxTokenAttempts {
		info.lockedUntil = m.now().Add(LockoutDuration)
		logging.Warn("Client locked out after failed token attempts",
			"ip", ip, "lockout", LockoutDuration, "attempts", info.count)
	}
	m.failures[ip] = info
}

// ClearFailures resets the counter after a valid token.
func (m *Manager) ClearFailures(ip string) {
	m.mu.Lock()
	delete(m.failures, ip)
	m.mu.Unlock()
}

// TokenFromRequest reads the token header, a bearer authorization, or the
// token query parameter used by WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// ClientIP strips the port from RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.failures {
		if v.count >= MaxTokenAttempts && now.After(v.lockedUntil) {
			delete(m.failures, k)
		}
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Debug("Auth cleanup goroutine stopped")
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}
