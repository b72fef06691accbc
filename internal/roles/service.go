package roles

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/shared"
)

var (
	// ErrNotFound is returned when the role does not exist.
	ErrNotFound = fmt.Errorf("roles: %w", httpx.ErrNotFound)
	// ErrInvalidInput is returned for unknown permission keys.
	ErrInvalidInput = fmt.Errorf("roles: %w", httpx.ErrValidation)
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	SetPermissions(ctx context.Context, roleID int64, keys []string) error
	SetHiddenNav(ctx context.Context, roleID int64, items []string) error
	RoleMembers(ctx context.Context, roleID int64) ([]string, error)
}

// Invalidator drops memoized principals.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...string) error
}

// Service handles role business logic.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	audit       shared.AuditRecorder
	logger      *slog.Logger
}

// NewService builds Service instance. invalidator and audit may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// SetPermissions replaces the permission grants of a role and invalidates the
// principals of every member.
func (s *Service) SetPermissions(ctx context.Context, actorID string, roleID int64, keys []string) (Role, error) {
	keys = cleanList(keys)
	if err := s.repo.SetPermissions(ctx, roleID, keys); err != nil {
		return Role{}, err
	}
	return s.afterChange(ctx, actorID, roleID, "role.permissions.set", map[string]any{"permissions": keys})
}

// SetHiddenNav replaces the hidden navigation ids of a role.
func (s *Service) SetHiddenNav(ctx context.Context, actorID string, roleID int64, items []string) (Role, error) {
	items = cleanList(items)
	if err := s.repo.SetHiddenNav(ctx, roleID, items); err != nil {
		return Role{}, err
	}
	return s.afterChange(ctx, actorID, roleID, "role.hidden_nav.set", map[string]any{"hidden_nav_items": items})
}

func (s *Service) afterChange(ctx context.Context, actorID string, roleID int64, action string, meta map[string]any) (Role, error) {
	if s.invalidator != nil {
		members, err := s.repo.RoleMembers(ctx, roleID)
		if err != nil {
			return Role{}, fmt.Errorf("roles: members: %w", err)
		}
		if err := s.invalidator.Invalidate(ctx, members...); err != nil {
			return Role{}, err
		}
	}
	if s.audit != nil {
		entry := shared.AuditLog{ActorID: actorID, Action: action, Entity: "role", EntityID: fmt.Sprint(roleID), Meta: meta}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("roles audit", slog.Any("error", err))
		}
	}
	return s.repo.GetRole(ctx, roleID)
}

// cleanList trims, drops blanks and duplicates and sorts.
func cleanList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
