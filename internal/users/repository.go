package users

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id::text, email, name, is_active, is_superuser, group_id::text, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.IsSuperuser, &u.GroupID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func collectUsers(rows pgx.Rows, err error) ([]User, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// FindByEmail loads a user by e-mail, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// ListUsers returns all active users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	return collectUsers(r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY name, id`))
}

// ListByGroups returns the active users whose home group is in groupIDs.
func (r *Repository) ListByGroups(ctx context.Context, groupIDs []string) ([]User, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	return collectUsers(r.pool.Query(ctx, `SELECT `+userColumns+` FROM users
WHERE is_active AND group_id::text = ANY($1)
ORDER BY name, id`, groupIDs))
}

var _ RepositoryPort = (*Repository)(nil)
