// Package session issues and validates signed session tokens. Tokens
// are HMAC-signed with an explicit expiry, so a cookie's presence is
// never enough on its own; every request re-verifies signature and
// expiry.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/stagedemo/internal/model"
)

// TTL is the fixed session lifetime.
const TTL = 15 * time.Minute

// ErrInvalidSession is returned for missing, tampered, or expired tokens.
var ErrInvalidSession = errors.New("invalid or expired session")

type claims struct {
	Username string `json:"username"`
	UserID   int64  `json:"uid"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager creates a manager signing with the given secret. An empty
// secret gets a random one, which invalidates sessions on restart;
// fine for the demo, set SESSION_SECRET to persist them.
func NewManager(secret string) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &Manager{secret: key, now: time.Now}
}

// Issue mints a signed token for the identity, expiring after TTL.
func (m *Manager) Issue(id model.Identity) (string, error) {
	now := m.now()
	c := claims{
		Username: id.Username,
		UserID:   id.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the embedded identity.
func (m *Manager) Validate(token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, ErrInvalidSession
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidSession
	}

	return model.Identity{ID: c.UserID, Username: c.Username}, nil
}
