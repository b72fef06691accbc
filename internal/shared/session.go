package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenSource resolves a bearer token into the user it was issued for.
type TokenSource interface {
	Lookup(ctx context.Context, token string) (Session, error)
}

// Session is the server side record behind a bearer token.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore issues and resolves bearer tokens backed by Redis. Sessions are
// stored under an HMAC of the token keyed with the session secret, so the
// Redis keyspace never holds a usable bearer token.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
	secret []byte
	now    func() time.Time
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, secret string, ttl time.Duration) *TokenStore {
	return &TokenStore{
		client: client,
		ttl:    ttl,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// TTL exposes the configured session lifetime.
func (ts *TokenStore) TTL() time.Duration {
	return ts.ttl
}

// Issue creates a new token for userID.
func (ts *TokenStore) Issue(ctx context.Context, userID string) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, errors.New("session user required")
	}
	now := ts.now().UTC()
	sess := Session{
		Token:     ts.generateToken(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ts.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := ts.client.Set(ctx, ts.redisKey(sess.Token), data, ts.ttl).Err(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Lookup loads the session behind token.
func (ts *TokenStore) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrTokenMissing
	}
	payload, err := ts.client.Get(ctx, ts.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, err
	}
	sess.Token = token
	return sess, nil
}

// Revoke deletes the session behind token.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := ts.client.Del(ctx, ts.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (ts *TokenStore) redisKey(token string) string {
	mac := hmac.New(sha256.New, ts.secret)
	mac.Write([]byte(token))
	return "session:" + hex.EncodeToString(mac.Sum(nil))
}

func (ts *TokenStore) generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

var _ TokenSource = (*TokenStore)(nil)
