// auth.go implements dashboard authentication: an argon2id password
// digest checked at login and an in-memory session token set.
package webui

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// sessionTTL is how long a login cookie stays valid.
const sessionTTL = 24 * time.Hour

// sessionCookie is the dashboard cookie name.
const sessionCookie = "elia_session"

// HashPassword derives an argon2id digest for the given password with
// a fresh random salt. Both are returned base64-encoded for storage in
// the startup config.
func HashPassword(password string) (hash, salt string, err error) {
	rawSalt := make([]byte, saltLen)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), rawSalt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.StdEncoding.EncodeToString(key),
		base64.StdEncoding.EncodeToString(rawSalt),
		nil
}

// VerifyPassword checks a password against a stored digest and salt in
// constant time.
func VerifyPassword(password, hashB64, saltB64 string) bool {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(key, stored) == 1
}

// sessions tracks issued login tokens with their expiry.
type sessions struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]time.Time)}
}

// issue creates a new session token.
func (s *sessions) issue() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(sessionTTL)
	s.mu.Unlock()
	return token
}

// valid reports whether a token is live, pruning it when expired.
func (s *sessions) valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// revoke drops a token on logout.
func (s *sessions) revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
