package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socdesk/socdesk/internal/access"
)

// Repository loads role assignments and the permission catalogue.
type Repository interface {
	LoadSubject(ctx context.Context, userID string) (Subject, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const subjectQuery = `SELECT u.id::text, u.email, u.name, u.is_superuser, u.group_id::text, COALESCE(g.name, '')
FROM users u
LEFT JOIN groups g ON g.id = u.group_id
WHERE u.id = $1 AND u.is_active`

const subjectRolesQuery = `SELECT r.id, r.name, r.hidden_nav_items, COALESCE(p.key, ''), COALESCE(p.name, '')
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1
ORDER BY r.id, p.key`

// LoadSubject fetches the user and every role assigned to it.
func (r *PGRepository) LoadSubject(ctx context.Context, userID string) (Subject, error) {
	var s Subject
	err := r.pool.QueryRow(ctx, subjectQuery, userID).Scan(&s.ID, &s.Email, &s.Name, &s.IsSuperuser, &s.GroupID, &s.GroupName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, fmt.Errorf("rbac: load subject: %w", err)
	}

	rows, err := r.pool.Query(ctx, subjectRolesQuery, userID)
	if err != nil {
		return Subject{}, fmt.Errorf("rbac: load roles: %w", err)
	}
	defer rows.Close()

	positions := make(map[int64]int)
	for rows.Next() {
		var (
			roleID  int64
			name    string
			hidden  []string
			permKey string
			permNm  string
		)
		if err := rows.Scan(&roleID, &name, &hidden, &permKey, &permNm); err != nil {
			return Subject{}, err
		}
		idx, ok := positions[roleID]
		if !ok {
			idx = len(s.Roles)
			positions[roleID] = idx
			s.Roles = append(s.Roles, access.WireRole{Name: name, HiddenNavItems: hidden})
		}
		if permKey == "" && permNm == "" {
			continue
		}
		s.Roles[idx].Permissions = append(s.Roles[idx].Permissions, access.WirePermission{Key: permKey, Name: permNm})
	}
	if err := rows.Err(); err != nil {
		return Subject{}, err
	}
	return s, nil
}

// ListPermissions returns the permission catalogue ordered by key.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, name, description FROM permissions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

var _ Repository = (*PGRepository)(nil)
