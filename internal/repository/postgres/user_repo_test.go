package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var userCols = []string{"id", "email", "name", "pwd_hash", "provider", "roles", "restricted", "profile_picture", "bio", "created_at", "updated_at"}

func TestUserRepo_FindByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT id, email, name, pwd_hash, provider, roles, restricted, profile_picture, bio, created_at, updated_at FROM users WHERE email=\$1`).
		WithArgs("alice@x.io").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice@x.io", "alice", []byte("h"), "LOCAL", []string{"USER", "ADMIN", "USER"}, true, "", "", now, now))
	u, err := r.FindByEmail(ctx, "alice@x.io")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, model.ProviderLocal, u.Provider)
	require.Equal(t, []model.Role{model.RoleAdmin, model.RoleUser}, u.Roles)
	require.True(t, u.Restricted)

	mock.ExpectQuery(`FROM users WHERE email=\$1`).
		WithArgs("nobody@x.io").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.FindByEmail(ctx, "nobody@x.io")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "bob@x.io", "bob", []byte{}, "GOOGLE", []string{"USER"}, false, "pic", "bio", now, now))
	u, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "bob@x.io", u.Email)
	require.Equal(t, model.ProviderGoogle, u.Provider)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(errors.New("boom"))
	_, err = r.FindByID(ctx, id)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "alice@x.io",
		Name:         "alice",
		PasswordHash: []byte("h"),
		Provider:     model.ProviderLocal,
		Roles:        []model.Role{model.RoleUser, model.RoleUser},
	}
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO users .*VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)\s+RETURNING created_at, updated_at`).
		WithArgs(u.ID, u.Email, u.Name, u.PasswordHash, "LOCAL", []string{"USER"}, false, "", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	out, err := r.Create(ctx, u)
	require.NoError(t, err)
	require.Equal(t, []model.Role{model.RoleUser}, out.Roles)
	require.True(t, out.CreatedAt.Equal(now))

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.ID, u.Email, u.Name, u.PasswordHash, "LOCAL", []string{"USER"}, false, "", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateProfile_TouchesOnlyProfileColumns(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()
	name := "Alice A."
	var none *string

	// restricted and roles are never written by a profile update, so a concurrent restriction survives
	mock.ExpectQuery(`(?s)^\s*UPDATE users SET\s+name = COALESCE\(\$2, name\),\s+bio = COALESCE\(\$3, bio\),\s+profile_picture = COALESCE\(\$4, profile_picture\),\s+updated_at = now\(\)\s+WHERE id = \$1 RETURNING id, email`).
		WithArgs(id, &name, none, none).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice@x.io", name, []byte("h"), "LOCAL", []string{"USER"}, true, "", "", now, now))
	u, err := r.UpdateProfile(ctx, id, model.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, u.Name)
	require.True(t, u.Restricted)

	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(id, none, none, none).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.UpdateProfile(ctx, id, model.ProfileUpdate{})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetRestricted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`^UPDATE users SET restricted = \$2, updated_at = now\(\) WHERE id = \$1 RETURNING id, email`).
		WithArgs(id, true).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice@x.io", "Alice A.", []byte("h"), "LOCAL", []string{"USER"}, true, "", "bio", now, now))
	u, err := r.SetRestricted(ctx, id, true)
	require.NoError(t, err)
	require.True(t, u.Restricted)
	require.Equal(t, "Alice A.", u.Name)

	mock.ExpectQuery(`UPDATE users SET restricted`).
		WithArgs(id, false).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.SetRestricted(ctx, id, false)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ChangeRole(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`(?s)UPDATE users SET\s+roles = CASE.*array_remove\(roles, \$2::text\).*array_append\(roles, \$2::text\).*WHERE id = \$1 RETURNING`).
		WithArgs(id, "ADMIN", true).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice@x.io", "alice", []byte("h"), "LOCAL", []string{"USER", "ADMIN"}, true, "", "", now, now))
	u, err := r.ChangeRole(ctx, id, model.RoleAdmin, true)
	require.NoError(t, err)
	require.Equal(t, []model.Role{model.RoleAdmin, model.RoleUser}, u.Roles)
	require.True(t, u.Restricted)

	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(id, "USER", false).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.ChangeRole(ctx, id, model.RoleUser, false)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ExistsByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email=\$1\)`).
		WithArgs("a@x.io").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.ExistsByEmail(context.Background(), "a@x.io")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	now := time.Now()
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	cols := append(append([]string{}, userCols...), "notes_count")
	mock.ExpectQuery(`(?s)SELECT u\.id, .*FROM users u\s+ORDER BY u\.created_at DESC`).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(a, "a@x.io", "a", []byte("h"), "LOCAL", []string{"USER"}, false, "", "", now, now, int64(3)).
			AddRow(b, "b@x.io", "b", []byte("h"), "LOCAL", []string{"ADMIN", "USER"}, false, "", "", now, now, int64(0)))
	list, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(3), list[0].NotesCount)
	require.True(t, list[1].HasRole(model.RoleAdmin))
}

func TestUserRepo_Stats(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)SELECT.*count`).
		WillReturnRows(pgxmock.NewRows([]string{"u", "a", "r", "n"}).AddRow(int64(5), int64(1), int64(2), int64(9)))
	s, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.Stats{TotalUsers: 5, TotalAdmins: 1, RestrictedUsers: 2, TotalNotes: 9}, s)
}

func TestUserRepo_DeleteCascade(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM notes WHERE owner_id=\$1`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.DeleteCascade(ctx, id))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM notes WHERE owner_id=\$1`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()
	require.ErrorIs(t, r.DeleteCascade(ctx, id), errs.ErrNotFound)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM notes WHERE owner_id=\$1`).WithArgs(id).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()
	require.Error(t, r.DeleteCascade(ctx, id))
	require.NoError(t, mock.ExpectationsWereMet())
}
