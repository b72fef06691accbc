package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id::text, title, description, status, priority, created_by::text,
	group_id::text, assigned_to::text, sla_deadline, created_at, updated_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Priority, &t.CreatedByID,
		&t.GroupID, &t.AssignedToID, &t.SLADeadline, &t.CreatedAt, &t.UpdatedAt)
	t.Status = access.Status(status)
	return t, err
}

// GetTicket loads one ticket.
func (r *Repository) GetTicket(ctx context.Context, id string) (Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrNotFound
		}
		return Ticket{}, err
	}
	return t, nil
}

// ListTickets returns the tickets matching q and the total count before
// pagination.
func (r *Repository) ListTickets(ctx context.Context, q ListQuery) ([]Ticket, int, error) {
	where, args := visibilityClause(q)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where + ` ORDER BY created_at DESC, id`
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// visibilityClause renders the WHERE clause for q. The visibility branches
// are OR-ed and the status filter is AND-ed on top.
func visibilityClause(q ListQuery) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var scope []string
	if q.All {
		scope = append(scope, "TRUE")
	}
	if len(q.GroupIDs) > 0 {
		scope = append(scope, "group_id::text = ANY("+arg(q.GroupIDs)+")")
	}
	if q.UserID != "" {
		p := arg(q.UserID)
		scope = append(scope, "created_by::text = "+p, "assigned_to::text = "+p)
	}
	if len(scope) == 0 {
		scope = append(scope, "FALSE")
	}
	where := "(" + strings.Join(scope, " OR ") + ")"
	if q.Status != nil {
		where += " AND status = " + arg(string(*q.Status))
	}
	return where, args
}

// AppendComment adds a comment to ticketID.
func (r *Repository) AppendComment(ctx context.Context, ticketID, authorID, body string, internal bool) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO ticket_comments (ticket_id, author_id, body, internal)
VALUES ($1::uuid, NULLIF($2, '')::uuid, $3, $4)`, ticketID, authorID, body, internal)
	return err
}

// UpdateStatus moves ticketID from one status to another and records the
// change in ticket_status_history. A concurrent change makes the update a
// no-op and returns ErrStale.
func (r *Repository) UpdateStatus(ctx context.Context, ticketID, actorID string, from, to access.Status) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE tickets SET status = $3, updated_at = NOW()
WHERE id::text = $1 AND status = $2`, ticketID, string(from), string(to))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStale
		}
		_, err = tx.Exec(ctx, `INSERT INTO ticket_status_history (ticket_id, from_status, to_status, changed_by)
VALUES ($1::uuid, $2, $3, NULLIF($4, '')::uuid)`, ticketID, string(from), string(to), actorID)
		return err
	})
}

// AssignGroup routes ticketID to groupID.
func (r *Repository) AssignGroup(ctx context.Context, ticketID, groupID string) error {
	return r.exec(ctx, `UPDATE tickets SET group_id = $2::uuid, updated_at = NOW() WHERE id::text = $1`, ticketID, groupID)
}

// AssignUser sets the assignee of ticketID.
func (r *Repository) AssignUser(ctx context.Context, ticketID, userID string) error {
	return r.exec(ctx, `UPDATE tickets SET assigned_to = $2::uuid, updated_at = NOW() WHERE id::text = $1`, ticketID, userID)
}

func (r *Repository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
