package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/federation"
	"github.com/and161185/noteshub/internal/limiter"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User

	notes *fakeNotes // removed together with their owner when set

	findErr error
	saveErr error
	creates int

	before map[string]func() // one-shot callbacks keyed by method name
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}, before: map[string]func(){}}
}

func clone(u *model.User) *model.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.hook("FindByEmail")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.hook("FindByID")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clone(u), nil
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	f.hook("Create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	for id, other := range f.byID {
		if id == u.ID || other.Email == u.Email {
			return nil, errs.ErrAlreadyExists
		}
	}
	c := clone(u)
	c.Roles = model.NormalizeRoles(c.Roles)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.byID[u.ID] = c
	f.creates++
	return clone(c), nil
}

// update applies fn to the stored row under the lock, like a single UPDATE statement.
func (f *fakeUsers) update(id uuid.UUID, fn func(*model.User)) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return clone(u), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error) {
	f.hook("UpdateProfile")
	return f.update(id, func(u *model.User) {
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

func (f *fakeUsers) SetRestricted(_ context.Context, id uuid.UUID, restricted bool) (*model.User, error) {
	f.hook("SetRestricted")
	return f.update(id, func(u *model.User) { u.Restricted = restricted })
}

func (f *fakeUsers) ChangeRole(_ context.Context, id uuid.UUID, role model.Role, add bool) (*model.User, error) {
	f.hook("ChangeRole")
	return f.update(id, func(u *model.User) {
		if add {
			u.Roles = model.NormalizeRoles(append(u.Roles, role))
			return
		}
		u.Roles = slices.DeleteFunc(u.Roles, func(r model.Role) bool { return r == role })
	})
}

// hook runs the registered callback for op once, outside the lock, so a test can
// interleave another operation between a service's read and its write.
func (f *fakeUsers) hook(op string) {
	f.mu.Lock()
	fn := f.before[op]
	delete(f.before, op)
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	if err == errs.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUsers) List(context.Context) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserSummary
	for _, u := range f.byID {
		var cnt int64
		if f.notes != nil {
			cnt = f.notes.countOwned(u.ID)
		}
		out = append(out, model.UserSummary{User: *clone(u), NotesCount: cnt})
	}
	return out, nil
}

func (f *fakeUsers) Stats(context.Context) (model.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s model.Stats
	for _, u := range f.byID {
		s.TotalUsers++
		if u.HasRole(model.RoleAdmin) {
			s.TotalAdmins++
		}
		if u.Restricted {
			s.RestrictedUsers++
		}
	}
	if f.notes != nil {
		s.TotalNotes = int64(len(f.notes.byID))
	}
	return s, nil
}

func (f *fakeUsers) DeleteCascade(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	if f.notes != nil {
		f.notes.deleteOwned(id)
	}
	return nil
}

type fakeNotes struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Note

	setTokenErrs []error // consumed one per SetShareToken call
	setCalls     int
}

var _ repository.NoteRepository = (*fakeNotes)(nil)

func newFakeNotes() *fakeNotes { return &fakeNotes{byID: map[uuid.UUID]*model.Note{}} }

func cloneNote(n *model.Note) *model.Note {
	c := *n
	if n.ShareToken != nil {
		t := *n.ShareToken
		c.ShareToken = &t
	}
	return &c
}

func (f *fakeNotes) Create(_ context.Context, n *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	f.byID[n.ID] = cloneNote(n)
	return nil
}

func (f *fakeNotes) Get(_ context.Context, id uuid.UUID) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneNote(n), nil
}

func (f *fakeNotes) ListByOwner(_ context.Context, owner uuid.UUID) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Note{}
	for _, n := range f.byID {
		if n.OwnerID == owner {
			out = append(out, *cloneNote(n))
		}
	}
	return out, nil
}

func (f *fakeNotes) Update(_ context.Context, n *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[n.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Title, cur.Content = n.Title, n.Content
	cur.UpdatedAt = time.Now()
	n.UpdatedAt = cur.UpdatedAt
	return nil
}

func (f *fakeNotes) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeNotes) SetShareToken(_ context.Context, id uuid.UUID, tok *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if len(f.setTokenErrs) > 0 {
		err := f.setTokenErrs[0]
		f.setTokenErrs = f.setTokenErrs[1:]
		if err != nil {
			return err
		}
	}
	cur, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if tok != nil {
		for oid, other := range f.byID {
			if oid != id && other.ShareToken != nil && *other.ShareToken == *tok {
				return errs.ErrAlreadyExists
			}
		}
		t := *tok
		cur.ShareToken = &t
		return nil
	}
	cur.ShareToken = nil
	return nil
}

func (f *fakeNotes) FindByShareToken(_ context.Context, tok string) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.byID {
		if n.ShareToken != nil && *n.ShareToken == tok {
			return cloneNote(n), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeNotes) countOwned(owner uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, note := range f.byID {
		if note.OwnerID == owner {
			n++
		}
	}
	return n
}

func (f *fakeNotes) deleteOwned(owner uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, note := range f.byID {
		if note.OwnerID == owner {
			delete(f.byID, id)
		}
	}
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeVerifier struct {
	id  federation.Identity
	err error
}

var _ federation.Verifier = (*fakeVerifier)(nil)

func (v *fakeVerifier) Verify(context.Context, string) (federation.Identity, error) {
	return v.id, v.err
}
