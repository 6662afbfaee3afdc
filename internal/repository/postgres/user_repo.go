package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, name, pwd_hash, provider, roles, restricted, profile_picture, bio, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (*model.User, error) {
	var (
		u        model.User
		provider string
		roles    []string
	)
	dest := append([]any{
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &provider, &roles,
		&u.Restricted, &u.ProfilePicture, &u.Bio, &u.CreatedAt, &u.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Provider = model.Provider(provider)
	u.Roles = toRoles(roles)
	return &u, nil
}

func toRoles(in []string) []model.Role {
	out := make([]model.Role, 0, len(in))
	for _, r := range in {
		out = append(out, model.Role(r))
	}
	return model.NormalizeRoles(out)
}

func fromRoles(in []model.Role) []string {
	norm := model.NormalizeRoles(in)
	out := make([]string, 0, len(norm))
	for _, r := range norm {
		out = append(out, string(r))
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// FindByEmail selects a user by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// FindByID selects a user by ID.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
INSERT INTO users (id, email, name, pwd_hash, provider, roles, restricted, profile_picture, bio)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at`
	out := *u
	out.Roles = model.NormalizeRoles(u.Roles)
	err := r.db.Pool.QueryRow(ctx, q,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Provider), fromRoles(u.Roles),
		u.Restricted, u.ProfilePicture, u.Bio,
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &out, nil
}

// updateReturning runs a single-row UPDATE ending in RETURNING userColumns.
func (r *UserRepo) updateReturning(ctx context.Context, q string, args ...any) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q+` RETURNING `+userColumns, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// UpdateProfile sets name, bio and profile picture where the update carries a value.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	const q = `
UPDATE users SET
  name = COALESCE($2, name),
  bio = COALESCE($3, bio),
  profile_picture = COALESCE($4, profile_picture),
  updated_at = now()
WHERE id = $1`
	return r.updateReturning(ctx, q, id, upd.Name, upd.Bio, upd.ProfilePicture)
}

// SetRestricted sets the restricted flag alone.
func (r *UserRepo) SetRestricted(ctx context.Context, id uuid.UUID, restricted bool) (*model.User, error) {
	const q = `UPDATE users SET restricted = $2, updated_at = now() WHERE id = $1`
	return r.updateReturning(ctx, q, id, restricted)
}

// ChangeRole appends or removes role inside the stored array, keeping it free of duplicates.
func (r *UserRepo) ChangeRole(ctx context.Context, id uuid.UUID, role model.Role, add bool) (*model.User, error) {
	const q = `
UPDATE users SET
  roles = CASE
    WHEN NOT $3 THEN array_remove(roles, $2::text)
    WHEN $2::text = ANY(roles) THEN roles
    ELSE array_append(roles, $2::text)
  END,
  updated_at = now()
WHERE id = $1`
	return r.updateReturning(ctx, q, id, string(role), add)
}

// ExistsByEmail reports whether a row with this email exists.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, email).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// List returns all users with note counts, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.UserSummary, error) {
	const q = `
SELECT u.id, u.email, u.name, u.pwd_hash, u.provider, u.roles, u.restricted, u.profile_picture, u.bio, u.created_at, u.updated_at,
  (SELECT count(*) FROM notes n WHERE n.owner_id = u.id)
FROM users u
ORDER BY u.created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserSummary
	for rows.Next() {
		var cnt int64
		u, err := scanUser(rows, &cnt)
		if err != nil {
			return nil, err
		}
		out = append(out, model.UserSummary{User: *u, NotesCount: cnt})
	}
	return out, rows.Err()
}

// Stats returns dashboard counters in a single round trip.
func (r *UserRepo) Stats(ctx context.Context) (model.Stats, error) {
	const q = `
SELECT
  (SELECT count(*) FROM users),
  (SELECT count(*) FROM users WHERE 'ADMIN' = ANY(roles)),
  (SELECT count(*) FROM users WHERE restricted),
  (SELECT count(*) FROM notes)`
	var s model.Stats
	err := r.db.Pool.QueryRow(ctx, q).Scan(&s.TotalUsers, &s.TotalAdmins, &s.RestrictedUsers, &s.TotalNotes)
	return s, err
}

// DeleteCascade removes the user's notes and the user in one transaction.
func (r *UserRepo) DeleteCascade(ctx context.Context, id uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM notes WHERE owner_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
