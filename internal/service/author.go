package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
	"github.com/strivelab/strive-blog/internal/storage"
)

// AuthorService handles author directory and profile business logic.
//
// It backs two route families: the public/setup author CRUD and the
// authenticated /authors/auth/me profile endpoints. The profile variants
// take the already-authenticated author, so they never need an ownership
// check — you can only ever edit yourself.
type AuthorService struct {
	authors   repository.AuthorRepository
	passwords *auth.PasswordService
	store     storage.ObjectStore
	logger    *slog.Logger
}

// NewAuthorService creates an AuthorService. store may be nil when object
// storage is not configured; the handler guards the upload route.
func NewAuthorService(
	authors repository.AuthorRepository,
	passwords *auth.PasswordService,
	store storage.ObjectStore,
	logger *slog.Logger,
) *AuthorService {
	return &AuthorService{
		authors:   authors,
		passwords: passwords,
		store:     store,
		logger:    logger,
	}
}

// List returns one page of the author directory. Password hashes are
// stripped before anything leaves the service.
func (s *AuthorService) List(ctx context.Context, page, limit int) ([]model.Author, error) {
	page, limit = clampPage(page, limit)

	authors, err := s.authors.List(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("service/author: listing authors: %w", err)
	}

	for i := range authors {
		authors[i].PasswordHash = ""
	}
	return authors, nil
}

// GetByID returns a single author, hash stripped.
func (s *AuthorService) GetByID(ctx context.Context, id string) (*model.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	author.PasswordHash = ""
	return author, nil
}

// AuthorInput carries the writable author fields for the setup CRUD routes.
type AuthorInput struct {
	Email     string
	Password  string
	Name      string
	Surname   string
	BirthDate string
	Avatar    string
}

// Create makes an author record directly (setup/testing routes). Password
// is optional; when present it is hashed so the record can also log in.
func (s *AuthorService) Create(ctx context.Context, in AuthorInput) (*model.Author, error) {
	author := &model.Author{
		Email:     normalizeEmail(in.Email),
		Name:      in.Name,
		Surname:   in.Surname,
		BirthDate: in.BirthDate,
		Avatar:    in.Avatar,
	}

	if in.Password != "" {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/author: hashing password: %w", err)
		}
		author.PasswordHash = hash
	}

	if err := s.authors.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("service/author: creating author: %w", err)
	}

	s.logger.Info("author created", slog.String("authorID", author.ID))

	author.PasswordHash = ""
	return author, nil
}

// Update rewrites an author's profile fields by ID (setup/testing routes).
func (s *AuthorService) Update(ctx context.Context, id string, in AuthorInput) (*model.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyAuthorInput(author, in)
	if err := s.authors.Update(ctx, author); err != nil {
		return nil, fmt.Errorf("service/author: updating author %s: %w", id, err)
	}

	author.PasswordHash = ""
	return author, nil
}

// Delete removes an author by ID (setup/testing routes). Their posts and
// comments stay behind with dangling references.
func (s *AuthorService) Delete(ctx context.Context, id string) error {
	if err := s.authors.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("author deleted", slog.String("authorID", id))
	return nil
}

// DeleteAll wipes the author collection (setup/testing routes).
func (s *AuthorService) DeleteAll(ctx context.Context) error {
	if err := s.authors.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("all authors deleted")
	return nil
}

// UpdateProfile is the authenticated "edit my account" path. The caller is
// the gate-resolved author, so no ownership check is needed.
func (s *AuthorService) UpdateProfile(ctx context.Context, me *model.Author, in AuthorInput) (*model.Author, error) {
	// Re-read the record: the context copy has its hash stripped and may
	// be stale within this request.
	author, err := s.authors.GetByID(ctx, me.ID)
	if err != nil {
		return nil, err
	}

	applyAuthorInput(author, in)
	if err := s.authors.Update(ctx, author); err != nil {
		return nil, fmt.Errorf("service/author: updating own profile %s: %w", me.ID, err)
	}

	s.logger.Info("profile updated", slog.String("authorID", me.ID))

	author.PasswordHash = ""
	return author, nil
}

// DeleteProfile is the authenticated "delete my account" path.
func (s *AuthorService) DeleteProfile(ctx context.Context, me *model.Author) error {
	if err := s.authors.Delete(ctx, me.ID); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("authorID", me.ID))
	return nil
}

// UploadAvatar stores the image and points the author's avatar at it.
func (s *AuthorService) UploadAvatar(ctx context.Context, authorID, fileName string, r io.Reader, size int64) (*model.Author, error) {
	author, err := s.authors.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	url, err := s.store.Upload(ctx, "avatars", fileName, r, size)
	if err != nil {
		return nil, fmt.Errorf("service/author: uploading avatar for %s: %w", authorID, err)
	}

	author.Avatar = url
	if err := s.authors.Update(ctx, author); err != nil {
		return nil, fmt.Errorf("service/author: saving avatar url for %s: %w", authorID, err)
	}

	author.PasswordHash = ""
	return author, nil
}

// applyAuthorInput copies the writable fields onto the record. Empty input
// fields are skipped, so a partial body doesn't blank out the profile.
func applyAuthorInput(author *model.Author, in AuthorInput) {
	if in.Email != "" {
		// Same canonical form the login lookup uses — a mixed-case edit
		// must not lock the account out of password login.
		author.Email = normalizeEmail(in.Email)
	}
	if in.Name != "" {
		author.Name = in.Name
	}
	if in.Surname != "" {
		author.Surname = in.Surname
	}
	if in.BirthDate != "" {
		author.BirthDate = in.BirthDate
	}
	if in.Avatar != "" {
		author.Avatar = in.Avatar
	}
}

// clampPage normalizes the pagination window: page starts at 1, the limit
// defaults to 10 and is capped at 50. The cap is a deliberate tightening of
// the caller-supplied page size — without it a single ?_limit=1000000
// request dumps the whole table.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return page, limit
}
