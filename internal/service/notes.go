package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/noteshub/internal/crypto"
	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/policy"
	"github.com/and161185/noteshub/internal/repository"
)

// MaxTitleLen bounds note titles, in characters.
const MaxTitleLen = 255

const maxShareAttempts = 5

// NoteService implements ownership-gated note operations and public sharing.
type NoteService struct {
	notes    repository.NoteRepository
	newToken func() (string, error)
	log      *zap.Logger
}

// NewNoteService constructs NoteService. A nil logger discards.
func NewNoteService(notes repository.NoteRepository, log *zap.Logger) *NoteService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteService{notes: notes, newToken: pkgcrypto.NewShareToken, log: log}
}

func validateNote(in model.NoteInput) (model.NoteInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLen {
		return in, fmt.Errorf("%w: title longer than %d characters", errs.ErrValidation, MaxTitleLen)
	}
	return in, nil
}

// Create stores a new note owned by p.
func (s *NoteService) Create(ctx context.Context, p *model.Principal, in model.NoteInput) (*model.Note, error) {
	if p == nil {
		return nil, errs.ErrForbidden
	}
	in, err := validateNote(in)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	n := &model.Note{ID: id, OwnerID: p.UserID, Title: in.Title, Content: in.Content}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ListMine returns the caller's notes.
func (s *NoteService) ListMine(ctx context.Context, p *model.Principal) ([]model.Note, error) {
	if p == nil {
		return nil, errs.ErrForbidden
	}
	return s.notes.ListByOwner(ctx, p.UserID)
}

// load returns ErrNotFound for a missing note and ErrForbidden for someone else's.
func (s *NoteService) load(ctx context.Context, p *model.Principal, id uuid.UUID, allow func(*model.Principal, *model.Note) bool) (*model.Note, error) {
	n, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allow(p, n) {
		return nil, errs.ErrForbidden
	}
	return n, nil
}

// Get returns a note the caller owns.
func (s *NoteService) Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Note, error) {
	return s.load(ctx, p, id, policy.CanReadOwned)
}

// Update replaces title and content of a note the caller owns.
func (s *NoteService) Update(ctx context.Context, p *model.Principal, id uuid.UUID, in model.NoteInput) (*model.Note, error) {
	n, err := s.load(ctx, p, id, policy.CanWriteOwned)
	if err != nil {
		return nil, err
	}
	in, err = validateNote(in)
	if err != nil {
		return nil, err
	}
	n.Title, n.Content = in.Title, in.Content
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes a note the caller owns, together with its share token.
func (s *NoteService) Delete(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if _, err := s.load(ctx, p, id, policy.CanWriteOwned); err != nil {
		return err
	}
	return s.notes.Delete(ctx, id)
}

// Share generates a fresh share token for a note the caller owns, replacing any previous one.
// A candidate equal to the previous token or already used elsewhere is regenerated,
// up to maxShareAttempts times.
func (s *NoteService) Share(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Note, error) {
	n, err := s.load(ctx, p, id, policy.CanWriteOwned)
	if err != nil {
		return nil, err
	}
	var prior string
	if n.ShareToken != nil {
		prior = *n.ShareToken
	}

	for attempt := 1; ; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, err
		}
		last := attempt >= maxShareAttempts
		if tok == prior && !last {
			continue
		}
		err = s.notes.SetShareToken(ctx, n.ID, &tok)
		if errors.Is(err, errs.ErrAlreadyExists) && !last {
			s.log.Warn("share token collision", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("set share token: %w", err)
		}
		n.ShareToken = &tok
		return n, nil
	}
}

// Unshare clears the share token of a note the caller owns.
func (s *NoteService) Unshare(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Note, error) {
	n, err := s.load(ctx, p, id, policy.CanWriteOwned)
	if err != nil {
		return nil, err
	}
	if err := s.notes.SetShareToken(ctx, n.ID, nil); err != nil {
		return nil, err
	}
	n.ShareToken = nil
	return n, nil
}

// GetShared returns the note carrying exactly this share token, for anyone.
// Malformed, unknown and cleared tokens all yield ErrNotFound.
func (s *NoteService) GetShared(ctx context.Context, shareToken string) (*model.Note, error) {
	if !pkgcrypto.ShareTokenLooksValid(shareToken) {
		return nil, errs.ErrNotFound
	}
	n, err := s.notes.FindByShareToken(ctx, shareToken)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadShared(shareToken, n) {
		return nil, errs.ErrNotFound
	}
	return n, nil
}
