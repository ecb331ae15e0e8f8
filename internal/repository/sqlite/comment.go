package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
)

// CommentStore implements repository.CommentRepository over the shared pool.
type CommentStore struct {
	db *DB
}

var _ repository.CommentRepository = (*CommentStore)(nil)

const commentColumns = `id, content, author_id, post_id, created_at, updated_at`

// Create inserts a new comment. The caller has already verified the post
// exists; the comment row itself carries no constraint on post_id.
func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, content, author_id, post_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Content,
		comment.AuthorID,
		comment.PostID,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}

	return nil
}

// GetByID retrieves a single comment.
// Returns apperror.ErrNotFound if no comment exists with that ID.
func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// ListByPost retrieves every comment on a post, oldest first. Comment
// threads are small; no pagination.
func (s *CommentStore) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at, id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// Delete removes a comment by its ID.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}
