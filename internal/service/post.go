package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/mailer"
	"github.com/strivelab/strive-blog/internal/metrics"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
	"github.com/strivelab/strive-blog/internal/storage"
)

// PostService handles blog post business logic: the public paginated
// listing, ownership-checked writes, cover uploads, and the publish
// notification email.
type PostService struct {
	posts   repository.PostRepository
	authors repository.AuthorRepository
	store   storage.ObjectStore
	mail    mailer.Mailer
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewPostService creates a PostService. store may be nil when object
// storage is not configured; the handler guards the upload route.
func NewPostService(
	posts repository.PostRepository,
	authors repository.AuthorRepository,
	store storage.ObjectStore,
	mail mailer.Mailer,
	rec metrics.Recorder,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:   posts,
		authors: authors,
		store:   store,
		mail:    mail,
		metrics: rec,
		logger:  logger,
	}
}

// List returns one page of posts plus the pagination metadata the frontend
// renders page links from.
//
// The count and the page read are two separate statements, not a snapshot.
// A post created between them can skew totalPages by one — harmless for a
// blog listing, and the price of not holding a transaction across the
// response.
func (s *PostService) List(ctx context.Context, page, limit int) (*model.PostPage, error) {
	page, limit = clampPage(page, limit)

	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: counting posts: %w", err)
	}

	posts, err := s.posts.List(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	return &model.PostPage{
		TotalPosts:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		Posts:       posts,
	}, nil
}

// GetByID returns a single post with its author projection.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// PostInput carries the writable post fields.
type PostInput struct {
	Category string
	Title    string
	Cover    string
	ReadTime model.ReadTime
	Content  string
}

// Create publishes a post owned by authorID and notifies the author by
// email. The author must exist: posts are only ever born with a live owner,
// even though the owner may be deleted later.
func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	author, err := s.authors.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Category: in.Category,
		Title:    in.Title,
		Cover:    in.Cover,
		ReadTime: in.ReadTime,
		Content:  in.Content,
		AuthorID: author.ID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.metrics.RecordPostPublished()
	s.logger.Info("post published",
		slog.String("postID", post.ID),
		slog.String("authorID", author.ID),
	)

	// Best-effort notification; the post is already live.
	if author.Email != "" {
		if err := s.mail.SendPostPublished(ctx, author.Email, author.Name, post.Title); err != nil {
			s.metrics.RecordEmailFailure()
			s.logger.Error("publish email failed",
				slog.String("postID", post.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// The list/detail endpoints embed the author's public projection; fill
	// it here too so the create response has the same shape.
	public := author.Public()
	post.Author = &public

	return post, nil
}

// Update rewrites a post by ID with no ownership check (setup/testing
// routes only).
func (s *PostService) Update(ctx context.Context, id string, in PostInput) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, post, in)
}

// UpdateOwn rewrites a post after verifying the caller owns it.
func (s *PostService) UpdateOwn(ctx context.Context, me *model.Author, id string, in PostInput) (*model.Post, error) {
	post, err := s.ownedPost(ctx, me, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, post, in)
}

func (s *PostService) applyUpdate(ctx context.Context, post *model.Post, in PostInput) (*model.Post, error) {
	if in.Category != "" {
		post.Category = in.Category
	}
	if in.Title != "" {
		post.Title = in.Title
	}
	if in.Cover != "" {
		post.Cover = in.Cover
	}
	if in.ReadTime != (model.ReadTime{}) {
		post.ReadTime = in.ReadTime
	}
	if in.Content != "" {
		post.Content = in.Content
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %s: %w", post.ID, err)
	}
	return post, nil
}

// Delete removes a post by ID with no ownership check (setup/testing
// routes only).
func (s *PostService) Delete(ctx context.Context, id string) error {
	return s.posts.Delete(ctx, id)
}

// DeleteOwn removes a post after verifying the caller owns it.
func (s *PostService) DeleteOwn(ctx context.Context, me *model.Author, id string) error {
	post, err := s.ownedPost(ctx, me, id)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", post.ID, err)
	}

	s.logger.Info("post deleted",
		slog.String("postID", post.ID),
		slog.String("authorID", me.ID),
	)
	return nil
}

// DeleteAll wipes every post (setup/testing routes only).
func (s *PostService) DeleteAll(ctx context.Context) error {
	if err := s.posts.DeleteAll(ctx); err != nil {
		return fmt.Errorf("service/post: deleting all posts: %w", err)
	}
	s.logger.Warn("all posts deleted")
	return nil
}

// UploadCover stores the image and points the post's cover at it. When me
// is non-nil the caller must own the post; nil means a setup route.
func (s *PostService) UploadCover(ctx context.Context, me *model.Author, postID, fileName string, r io.Reader, size int64) (*model.Post, error) {
	var post *model.Post
	var err error
	if me != nil {
		post, err = s.ownedPost(ctx, me, postID)
	} else {
		post, err = s.posts.GetByID(ctx, postID)
	}
	if err != nil {
		return nil, err
	}

	url, err := s.store.Upload(ctx, "covers", fileName, r, size)
	if err != nil {
		return nil, fmt.Errorf("service/post: uploading cover for %s: %w", postID, err)
	}

	post.Cover = url
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: saving cover url for %s: %w", postID, err)
	}

	return post, nil
}

// ownedPost loads the post and enforces that me wrote it.
//
// THE ORDER OF CHECKS MATTERS:
// Existence first, then ownership. A 404 for a missing post and a 403 for
// someone else's post tell the client two different true things; returning
// 404 for both would hide real posts from their own author on a bug.
func (s *PostService) ownedPost(ctx context.Context, me *model.Author, id string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != me.ID {
		return nil, apperror.Forbidden("you can only modify your own posts")
	}
	return post, nil
}
