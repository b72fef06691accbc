package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
)

// ErrNotFound indicates that the requested user does not exist or is inactive.
var ErrNotFound = fmt.Errorf("rbac: %w", httpx.ErrNotFound)

// Service resolves principals and exposes the permission catalogue.
type Service struct {
	repo   Repository
	cache  *SubjectCache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *SubjectCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Principal returns the resolved principal for userID. Subjects are served
// from cache when present; concurrent misses for the same user share one
// database load.
func (s *Service) Principal(ctx context.Context, userID string) (*access.Principal, error) {
	subject, err := s.Subject(ctx, userID)
	if err != nil {
		return nil, err
	}
	return subject.Principal(), nil
}

// Subject returns the persisted subject for userID.
func (s *Service) Subject(ctx context.Context, userID string) (Subject, error) {
	if userID == "" {
		return Subject{}, ErrNotFound
	}
	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("rbac subject cache get", slog.Any("error", err))
	}
	if ok {
		return cached, nil
	}

	res := s.group.DoChan(userID, func() (interface{}, error) {
		subject, err := s.repo.LoadSubject(context.WithoutCancel(ctx), userID)
		if err != nil {
			return Subject{}, err
		}
		if err := s.cache.Put(context.WithoutCancel(ctx), subject); err != nil {
			s.logger.Warn("rbac subject cache put", slog.Any("error", err))
		}
		return subject, nil
	})
	select {
	case <-ctx.Done():
		return Subject{}, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return Subject{}, r.Err
		}
		return r.Val.(Subject), nil
	}
}

// Invalidate drops memoized subjects after role or membership changes.
func (s *Service) Invalidate(ctx context.Context, userIDs ...string) error {
	if err := s.cache.Delete(ctx, userIDs...); err != nil {
		return fmt.Errorf("rbac: invalidate: %w", err)
	}
	return nil
}

// ListPermissions returns the permission catalogue.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// IsNotFound reports whether err means the subject is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
