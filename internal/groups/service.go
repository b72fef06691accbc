package groups

import (
	"context"
	"fmt"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
)

// ErrNotFound is returned when a group does not exist.
var ErrNotFound = fmt.Errorf("groups: %w", httpx.ErrNotFound)

// RepositoryPort defines data access methods for groups.
type RepositoryPort interface {
	ListGroups(ctx context.Context) ([]Group, error)
	GetGroup(ctx context.Context, id string) (Group, error)
}

// Service exposes group listings scoped to the caller.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListGroups returns every group.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// GetGroup returns one group.
func (s *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	return s.repo.GetGroup(ctx, id)
}

// Assignable returns the groups the principal may assign work to: its home
// group and every descendant, or all groups for a superuser.
func (s *Service) Assignable(ctx context.Context, p *access.Principal) ([]Group, error) {
	all, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Group, len(all))
	for _, g := range all {
		byID[g.ID] = g
	}
	scoped := p.ScopeGroups(nodes(all))
	out := make([]Group, 0, len(scoped))
	for _, n := range scoped {
		out = append(out, byID[n.ID])
	}
	return out, nil
}

// AssignableNodes returns the scoped groups as hierarchy nodes.
func (s *Service) AssignableNodes(ctx context.Context, p *access.Principal) ([]access.Group, error) {
	all, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return p.ScopeGroups(nodes(all)), nil
}

// AssignableIDs returns the ids of Assignable.
func (s *Service) AssignableIDs(ctx context.Context, p *access.Principal) ([]string, error) {
	scoped, err := s.AssignableNodes(ctx, p)
	if err != nil {
		return nil, err
	}
	return access.GroupIDs(scoped), nil
}

func nodes(all []Group) []access.Group {
	out := make([]access.Group, len(all))
	for i, g := range all {
		out[i] = g.node()
	}
	return out
}
