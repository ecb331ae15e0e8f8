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

// PostStore implements repository.PostRepository over the shared pool.
type PostStore struct {
	db *DB
}

var _ repository.PostRepository = (*PostStore)(nil)

// postSelect joins the owning author for the denormalized (name, surname)
// projection the listing endpoints return. LEFT JOIN, not INNER: a post
// whose author was deleted must still appear, with a NULL projection.
const postSelect = `
	SELECT p.id, p.category, p.title, p.cover, p.read_time_value, p.read_time_unit,
	       p.content, p.author_id, p.created_at, p.updated_at,
	       a.name, a.surname
	FROM posts p
	LEFT JOIN authors a ON a.id = p.author_id`

// Create inserts a new post. ID and timestamps are generated here; the
// caller's struct is updated in place.
func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, category, title, cover, read_time_value, read_time_unit, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Category,
		post.Title,
		post.Cover,
		post.ReadTime.Value,
		post.ReadTime.Unit,
		post.Content,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	post.Comments = []string{}
	return nil
}

// GetByID retrieves a single post with its author projection and comment
// reference list. Returns apperror.ErrNotFound if the post doesn't exist.
func (s *PostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := s.db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	comments, err := idList(ctx, s.db.conn,
		`SELECT id FROM comments WHERE post_id = ? ORDER BY created_at, id`, post.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading post %s comment refs: %w", post.ID, err)
	}
	post.Comments = comments

	return post, nil
}

// List retrieves posts with pagination, oldest first, each carrying its
// author projection. Comment reference lists are loaded per post.
func (s *PostStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.conn.QueryContext(ctx,
		postSelect+` ORDER BY p.created_at, p.id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	for i := range posts {
		comments, err := idList(ctx, s.db.conn,
			`SELECT id FROM comments WHERE post_id = ? ORDER BY created_at, id`, posts[i].ID)
		if err != nil {
			return nil, fmt.Errorf("sqlite: loading post %s comment refs: %w", posts[i].ID, err)
		}
		posts[i].Comments = comments
	}

	return posts, nil
}

// Count returns the total number of posts, for pagination metadata.
func (s *PostStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return count, nil
}

// Update rewrites the mutable fields of an existing post. The author_id is
// immutable — ownership never transfers.
func (s *PostStore) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET category = ?, title = ?, cover = ?, read_time_value = ?, read_time_unit = ?, content = ?, updated_at = ?
		 WHERE id = ?`,
		post.Category,
		post.Title,
		post.Cover,
		post.ReadTime.Value,
		post.ReadTime.Unit,
		post.Content,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// Delete removes a post by its ID.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// DeleteAll wipes the posts collection. Setup/testing mode only.
func (s *PostStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("sqlite: deleting all posts: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows so scanPost can serve the
// single-row and multi-row paths.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		p             model.Post
		authorName    sql.NullString
		authorSurname sql.NullString
	)

	if err := s.Scan(
		&p.ID, &p.Category, &p.Title, &p.Cover,
		&p.ReadTime.Value, &p.ReadTime.Unit,
		&p.Content, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&authorName, &authorSurname,
	); err != nil {
		return nil, err
	}

	// A NULL name means the LEFT JOIN found no author — a dangling
	// reference. The projection stays nil rather than inventing a record.
	if authorName.Valid {
		p.Author = &model.PublicAuthor{
			Name:    authorName.String,
			Surname: stringOrEmpty(authorSurname),
		}
	}

	p.Comments = []string{}
	return &p, nil
}
