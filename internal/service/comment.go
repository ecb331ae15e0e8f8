package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
)

// CommentService handles comment threads. Comments are always addressed
// through their post (/blogposts/{id}/comments/...), so every operation
// verifies the post half of the address first.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		logger:   logger,
	}
}

// ListForPost returns every comment on a post, oldest first.
// Returns ErrNotFound when the post itself doesn't exist, so a thread on a
// deleted post 404s instead of rendering empty.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// Get returns a single comment addressed as post+comment. A comment id that
// exists under a different post is a 404: the address is the pair, not the
// comment id alone.
func (s *CommentService) Get(ctx context.Context, postID, commentID string) (*model.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, apperror.NotFound("comment", commentID)
	}
	return comment, nil
}

// Create adds a comment to a post. me may be nil on the setup routes, in
// which case the comment is anonymous (empty author reference).
func (s *CommentService) Create(ctx context.Context, me *model.Author, postID, content string) (*model.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Content: content,
		PostID:  postID,
	}
	if me != nil {
		comment.AuthorID = me.ID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("commentID", comment.ID),
		slog.String("postID", postID),
	)
	return comment, nil
}

// DeleteOwn removes a comment after verifying the caller wrote it.
func (s *CommentService) DeleteOwn(ctx context.Context, me *model.Author, postID, commentID string) error {
	comment, err := s.Get(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != me.ID {
		return apperror.Forbidden("you can only delete your own comments")
	}
	return s.comments.Delete(ctx, commentID)
}

// Delete removes a comment with no ownership check (setup/testing routes).
func (s *CommentService) Delete(ctx context.Context, postID, commentID string) error {
	if _, err := s.Get(ctx, postID, commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID)
}
