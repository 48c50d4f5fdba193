/*
Package drafts keeps unpublished post drafts on the local machine.

Drafts are stored in sqlite by default, or in PostgreSQL when the drafts DSN
points there; the schema is migrated on open. A draft belongs to the user who
saved it and optionally to the published post it edits, with at most one draft
per post.
*/
package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogclient/internal/app/blog"
	"blogclient/internal/pkg/randx"
)

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Draft is a locally saved post.
type Draft struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId"`
	BlogID    string         `json:"blogId,omitempty"`
	Post      blog.PostInput `json:"post"`
	ReadTime  int            `json:"readTime"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store is the drafts database.
type Store struct {
	db      *sql.DB
	dialect string
	now     func() time.Time

	conn *database
}

// Open opens (and migrates) the drafts database named by dsn.
func Open(dsn string) (*Store, error) {
	conn, err := openDB(dsn)
	if err != nil {
		return nil, err
	}

	return &Store{db: conn.db, dialect: conn.dialect, now: time.Now, conn: conn}, nil
}

// Close releases the database and, for postgres, its connection pool.
func (s *Store) Close() error {
	return s.conn.close()
}

// Save creates d when its ID is empty and updates it otherwise.
func (s *Store) Save(ctx context.Context, d Draft) (Draft, error) {
	if d.OwnerID == "" {
		return Draft{}, fmt.Errorf("draft has no owner")
	}

	d.Post.Normalize()

	payload, err := json.Marshal(d.Post)
	if err != nil {
		return Draft{}, fmt.Errorf("failed to encode draft: %w", err)
	}

	now := s.now().UTC()
	d.UpdatedAt = now
	d.ReadTime = blog.ReadTime(d.Post.Content)

	if d.ID == "" {
		d.ID = randx.DraftID()
		d.CreatedAt = now

		_, err = s.db.ExecContext(ctx, rebind(s.dialect,
			`INSERT INTO drafts (id, owner_id, blog_id, title, payload, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			d.ID, d.OwnerID, d.BlogID, d.Post.Title, string(payload),
			now.Format(timeLayout), now.Format(timeLayout),
		)
		if isUniqueViolation(err) {
			return Draft{}, ErrConflict
		}
		if err != nil {
			return Draft{}, fmt.Errorf("failed to insert draft: %w", err)
		}

		return d, nil
	}

	existing, err := s.Get(ctx, d.OwnerID, d.ID)
	if err != nil {
		return Draft{}, err
	}
	d.CreatedAt = existing.CreatedAt

	_, err = s.db.ExecContext(ctx, rebind(s.dialect,
		`UPDATE drafts SET blog_id = ?, title = ?, payload = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`),
		d.BlogID, d.Post.Title, string(payload), now.Format(timeLayout),
		d.ID, d.OwnerID,
	)
	if isUniqueViolation(err) {
		return Draft{}, ErrConflict
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to update draft: %w", err)
	}

	return d, nil
}

// Get returns draft id of ownerID.
func (s *Store) Get(ctx context.Context, ownerID, id string) (Draft, error) {
	if !randx.IsValidDraftID(id) {
		return Draft{}, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, rebind(s.dialect,
		`SELECT id, owner_id, blog_id, payload, created_at, updated_at
		 FROM drafts WHERE id = ? AND owner_id = ?`),
		id, ownerID,
	)

	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("failed to read draft: %w", err)
	}

	return d, nil
}

// List returns the drafts of ownerID, most recently updated first.
func (s *Store) List(ctx context.Context, ownerID string) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.dialect,
		`SELECT id, owner_id, blog_id, payload, created_at, updated_at
		 FROM drafts WHERE owner_id = ? ORDER BY updated_at DESC, id`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	out := []Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read draft: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	return out, nil
}

// Delete removes draft id of ownerID.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if !randx.IsValidDraftID(id) {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, rebind(s.dialect,
		`DELETE FROM drafts WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (Draft, error) {
	var (
		d                    Draft
		payload              string
		createdAt, updatedAt string
	)

	if err := row.Scan(&d.ID, &d.OwnerID, &d.BlogID, &payload, &createdAt, &updatedAt); err != nil {
		return Draft{}, err
	}

	if err := json.Unmarshal([]byte(payload), &d.Post); err != nil {
		return Draft{}, fmt.Errorf("corrupt draft payload: %w", err)
	}

	var err error
	if d.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Draft{}, fmt.Errorf("corrupt draft timestamp: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return Draft{}, fmt.Errorf("corrupt draft timestamp: %w", err)
	}

	d.ReadTime = blog.ReadTime(d.Post.Content)

	return d, nil
}
