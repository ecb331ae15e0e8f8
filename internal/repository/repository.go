// Package repository defines the storage interfaces for the three
// collections: authors, posts, and comments.
//
// The service layer depends on these interfaces, never on a concrete
// backend. The sqlite subpackage is the current implementation; swapping it
// for another store means changing one line in the composition root.
package repository

import (
	"context"

	"github.com/strivelab/strive-blog/internal/model"
)

// ListOptions carries the offset/limit window for paginated listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// AuthorRepository persists author identity records.
//
// The three lookup methods back the three ways an author is reachable:
// by internal ID (token subject), by email (password login), and by Google
// subject id (OAuth login). Each returns apperror.ErrNotFound when no
// record matches.
type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	GetByID(ctx context.Context, id string) (*model.Author, error)
	GetByEmail(ctx context.Context, email string) (*model.Author, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.Author, error)
	List(ctx context.Context, opts ListOptions) ([]model.Author, error)
	Update(ctx context.Context, author *model.Author) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// PostRepository persists blog posts. Count supports the pagination
// metadata (totalPosts/totalPages) on the public listing.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, opts ListOptions) ([]model.Post, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// CommentRepository persists comments on posts.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	Delete(ctx context.Context, id string) error
}
