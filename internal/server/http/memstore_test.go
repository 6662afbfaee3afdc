package httpserver

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/repository"
)

// memStore is an in-memory users+notes store for router tests.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
	notes map[uuid.UUID]model.Note
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]model.User{}, notes: map[uuid.UUID]model.Note{}}
}

type memUsers struct{ *memStore }

type memNotes struct{ *memStore }

var (
	_ repository.UserRepository = memUsers{}
	_ repository.NoteRepository = memNotes{}
)

func copyUser(u model.User) *model.User {
	u.Roles = slices.Clone(u.Roles)
	return &u
}

func copyNote(n model.Note) *model.Note {
	if n.ShareToken != nil {
		t := *n.ShareToken
		n.ShareToken = &t
	}
	return &n
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyUser(u), nil
}

func (m memUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.users {
		if id == u.ID || other.Email == u.Email {
			return nil, errs.ErrAlreadyExists
		}
	}
	c := *copyUser(*u)
	c.Roles = model.NormalizeRoles(c.Roles)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.users[u.ID] = c
	return copyUser(c), nil
}

func (m memUsers) update(id uuid.UUID, fn func(*model.User)) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return copyUser(u), nil
}

func (m memUsers) UpdateProfile(_ context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	return m.update(id, func(u *model.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Bio != nil {
			u.Bio = *upd.Bio
		}
		if upd.ProfilePicture != nil {
			u.ProfilePicture = *upd.ProfilePicture
		}
	})
}

func (m memUsers) SetRestricted(_ context.Context, id uuid.UUID, restricted bool) (*model.User, error) {
	return m.update(id, func(u *model.User) { u.Restricted = restricted })
}

func (m memUsers) ChangeRole(_ context.Context, id uuid.UUID, role model.Role, add bool) (*model.User, error) {
	return m.update(id, func(u *model.User) {
		roles := slices.Clone(u.Roles)
		if add {
			roles = append(roles, role)
		} else {
			roles = slices.DeleteFunc(roles, func(r model.Role) bool { return r == role })
		}
		u.Roles = model.NormalizeRoles(roles)
	})
}

func (m memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m memUsers) List(context.Context) ([]model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.UserSummary{}
	for _, u := range m.users {
		var cnt int64
		for _, n := range m.notes {
			if n.OwnerID == u.ID {
				cnt++
			}
		}
		out = append(out, model.UserSummary{User: *copyUser(u), NotesCount: cnt})
	}
	return out, nil
}

func (m memUsers) Stats(context.Context) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Stats{TotalUsers: int64(len(m.users)), TotalNotes: int64(len(m.notes))}
	for _, u := range m.users {
		if u.HasRole(model.RoleAdmin) {
			s.TotalAdmins++
		}
		if u.Restricted {
			s.RestrictedUsers++
		}
	}
	return s, nil
}

func (m memUsers) DeleteCascade(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errs.ErrNotFound
	}
	for nid, n := range m.notes {
		if n.OwnerID == id {
			delete(m.notes, nid)
		}
	}
	delete(m.users, id)
	return nil
}

func (m memNotes) Create(_ context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	m.notes[n.ID] = *copyNote(*n)
	return nil
}

func (m memNotes) Get(_ context.Context, id uuid.UUID) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyNote(n), nil
}

func (m memNotes) ListByOwner(_ context.Context, owner uuid.UUID) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Note{}
	for _, n := range m.notes {
		if n.OwnerID == owner {
			out = append(out, *copyNote(n))
		}
	}
	return out, nil
}

func (m memNotes) Update(_ context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.notes[n.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Title, cur.Content, cur.UpdatedAt = n.Title, n.Content, time.Now()
	m.notes[n.ID] = cur
	n.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m memNotes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m memNotes) SetShareToken(_ context.Context, id uuid.UUID, tok *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.notes[id]
	if !ok {
		return errs.ErrNotFound
	}
	cur.ShareToken = nil
	if tok != nil {
		for oid, other := range m.notes {
			if oid != id && other.ShareToken != nil && *other.ShareToken == *tok {
				return errs.ErrAlreadyExists
			}
		}
		t := *tok
		cur.ShareToken = &t
	}
	m.notes[id] = cur
	return nil
}

func (m memNotes) FindByShareToken(_ context.Context, tok string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.ShareToken != nil && *n.ShareToken == tok {
			return copyNote(n), nil
		}
	}
	return nil, errs.ErrNotFound
}
