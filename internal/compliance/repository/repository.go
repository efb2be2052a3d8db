// Package repository persists the do-not-disturb registry.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("dnd entry not found")
	ErrDuplicate = errors.New("phone already on the dnd registry")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Entry is one registry row, keyed by normalized phone.
type Entry struct {
	Phone     string
	Reason    string
	AddedBy   string
	CreatedAt time.Time
}

// Exists is the hot-path lookup used by intake, assignment and reminders.
// Primary-key probe, no cache: an addition is effective on the next read.
func (r *Repository) Exists(ctx context.Context, phone string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM dnd_entries WHERE phone = $1)
	`, phone).Scan(&found)
	return found, err
}

// Add inserts a registry entry.
func (r *Repository) Add(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dnd_entries (phone, reason, added_by) VALUES ($1, $2, $3)
	`, entry.Phone, entry.Reason, entry.AddedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Remove deletes a registry entry.
func (r *Repository) Remove(ctx context.Context, phone string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dnd_entries WHERE phone = $1`, phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the registry, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT phone, reason, added_by, created_at
		FROM dnd_entries
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Phone, &e.Reason, &e.AddedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one entry.
func (r *Repository) Get(ctx context.Context, phone string) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `
		SELECT phone, reason, added_by, created_at FROM dnd_entries WHERE phone = $1
	`, phone).Scan(&e.Phone, &e.Reason, &e.AddedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}
