package users

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/groups"
	"github.com/socdesk/socdesk/internal/platform/httpx"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = fmt.Errorf("users: %w", httpx.ErrNotFound)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListByGroups(ctx context.Context, groupIDs []string) ([]User, error)
}

// GroupScoper returns the groups a principal may assign work to.
type GroupScoper interface {
	Assignable(ctx context.Context, p *access.Principal) ([]groups.Group, error)
	AssignableIDs(ctx context.Context, p *access.Principal) ([]string, error)
}

// Service handles user business logic.
type Service struct {
	repo       RepositoryPort
	groups     GroupScoper
	navigation []access.NavigationEntry
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, groups GroupScoper, navigation []access.NavigationEntry) *Service {
	return &Service{repo: repo, groups: groups, navigation: navigation}
}

// FindByID returns one user.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListUsers returns users matching filter. With Assignable set the result is
// limited to members of the principal's scoped groups, also when looking up by
// email.
func (s *Service) ListUsers(ctx context.Context, p *access.Principal, filter ListFilter) ([]User, error) {
	scoped := filter.Assignable && (p == nil || !p.User.IsSuperuser)
	var ids []string
	if scoped {
		var err error
		ids, err = s.groups.AssignableIDs(ctx, p)
		if err != nil {
			return nil, err
		}
	}
	if filter.Email != "" {
		u, err := s.repo.FindByEmail(ctx, filter.Email)
		if err != nil {
			return nil, err
		}
		if scoped && (u.GroupID == nil || !slices.Contains(ids, *u.GroupID)) {
			return []User{}, nil
		}
		return []User{u}, nil
	}
	if !scoped {
		return s.repo.ListUsers(ctx)
	}
	return s.repo.ListByGroups(ctx, ids)
}

// Me assembles the profile of the signed in principal.
func (s *Service) Me(ctx context.Context, p *access.Principal) (Profile, error) {
	if p == nil {
		return Profile{}, httpx.ErrUnauthorized
	}
	profile := Profile{
		GroupName:   p.GroupName,
		Permissions: p.Permissions.Sorted(),
		Navigation:  p.Navigation(s.navigation),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.repo.FindByID(gctx, p.User.ID)
		if err != nil {
			return err
		}
		profile.User = u
		return nil
	})
	g.Go(func() error {
		scoped, err := s.groups.Assignable(gctx, p)
		if err != nil {
			return err
		}
		profile.AssignableGroups = scoped
		return nil
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	if profile.Permissions == nil {
		profile.Permissions = []string{}
	}
	if profile.Navigation == nil {
		profile.Navigation = []access.NavigationEntry{}
	}
	return profile, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
