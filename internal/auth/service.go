package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/socdesk/socdesk/internal/shared"
)

// TokenIssuer issues and revokes bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (shared.Session, error)
	Revoke(ctx context.Context, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the credentials and issues a bearer token. The session
// row is bookkeeping only; failing to write it does not fail the login.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (shared.Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return shared.Session{}, err
	}
	sess, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return shared.Session{}, err
	}
	if err := s.repo.CreateSession(ctx, SessionID(sess.Token), user.ID, sess.ExpiresAt, ip, ua); err != nil {
		s.logger.Warn("register session", slog.Any("error", err))
	}
	return sess, nil
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, SessionID(token)); err != nil {
		s.logger.Warn("remove session", slog.Any("error", err))
	}
	return nil
}

// SessionID derives the persisted session id from a bearer token so raw
// tokens never reach the database.
func SessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
