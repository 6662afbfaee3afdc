package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

const noteColumns = `id, owner_id, title, content, share_token, created_at, updated_at`

func scanNote(row pgx.Row) (*model.Note, error) {
	var n model.Note
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.ShareToken, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a note and fills its timestamps.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	const q = `INSERT INTO notes (id, owner_id, title, content) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`
	if err := r.db.Pool.QueryRow(ctx, q, n.ID, n.OwnerID, n.Title, n.Content).Scan(&n.CreatedAt, &n.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Get selects a note by ID.
func (r *NoteRepo) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE id=$1`
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

// ListByOwner returns the owner's notes, most recently updated first.
func (r *NoteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE owner_id=$1 ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Update stores title and content. Ownership is never rewritten.
func (r *NoteRepo) Update(ctx context.Context, n *model.Note) error {
	const q = `UPDATE notes SET title=$2, content=$3, updated_at=now() WHERE id=$1 RETURNING updated_at`
	if err := r.db.Pool.QueryRow(ctx, q, n.ID, n.Title, n.Content).Scan(&n.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

// Delete removes a note.
func (r *NoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM notes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetShareToken stores or clears the share token.
func (r *NoteRepo) SetShareToken(ctx context.Context, id uuid.UUID, token *string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE notes SET share_token=$2, updated_at=now() WHERE id=$1`, id, token)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// FindByShareToken selects the note carrying exactly this token.
func (r *NoteRepo) FindByShareToken(ctx context.Context, token string) (*model.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes WHERE share_token=$1`
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, token))
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}
