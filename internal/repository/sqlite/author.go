package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
)

// AuthorStore implements repository.AuthorRepository over the shared pool.
type AuthorStore struct {
	db *DB
}

var _ repository.AuthorRepository = (*AuthorStore)(nil)

const authorColumns = `id, google_id, email, password_hash, name, surname, birth_date, avatar, created_at, updated_at`

// Create inserts a new author record.
//
// The ID and timestamps are generated here (xid IDs are 20-char, URL-safe,
// and sortable by creation time). The caller's struct is modified in place
// so it carries the canonical record after the insert.
//
// A UNIQUE violation on email or google_id is translated to
// apperror.ErrConflict — the service checks first, but the constraint is the
// backstop against races between the check and the insert.
func (s *AuthorStore) Create(ctx context.Context, author *model.Author) error {
	author.ID = xid.New().String()
	now := time.Now()
	author.CreatedAt = now
	author.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO authors (id, google_id, email, password_hash, name, surname, birth_date, avatar, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		author.ID,
		nullable(author.GoogleID),
		nullable(author.Email),
		author.PasswordHash,
		author.Name,
		author.Surname,
		author.BirthDate,
		author.Avatar,
		author.CreatedAt,
		author.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("author", author.Email)
		}
		return fmt.Errorf("sqlite: creating author: %w", err)
	}

	author.BlogPosts = []string{}
	author.Comments = []string{}
	return nil
}

// GetByID retrieves an author by internal ID, including the derived
// blogPosts and comments reference lists.
// Returns apperror.ErrNotFound if no author exists with that ID.
func (s *AuthorStore) GetByID(ctx context.Context, id string) (*model.Author, error) {
	return s.getAuthor(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves an author by email address (password login path).
func (s *AuthorStore) GetByEmail(ctx context.Context, email string) (*model.Author, error) {
	return s.getAuthor(ctx, `WHERE email = ?`, email)
}

// GetByGoogleID retrieves an author by Google subject id (OAuth login path).
func (s *AuthorStore) GetByGoogleID(ctx context.Context, googleID string) (*model.Author, error) {
	return s.getAuthor(ctx, `WHERE google_id = ?`, googleID)
}

// getAuthor is the shared single-row lookup behind the three Get methods.
// The where clause is a trusted package-internal constant, never user input.
func (s *AuthorStore) getAuthor(ctx context.Context, where string, arg any) (*model.Author, error) {
	var (
		a        model.Author
		googleID sql.NullString
		email    sql.NullString
	)

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors `+where, arg,
	).Scan(
		&a.ID,
		&googleID,
		&email,
		&a.PasswordHash,
		&a.Name,
		&a.Surname,
		&a.BirthDate,
		&a.Avatar,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("author", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting author: %w", err)
	}

	a.GoogleID = stringOrEmpty(googleID)
	a.Email = stringOrEmpty(email)

	if err := s.loadAuthorRefs(ctx, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

// loadAuthorRefs fills the author's ordered blogPosts and comments ID lists.
//
// The lists are derived from the posts/comments tables rather than stored on
// the author row. The original document store kept denormalized arrays and
// appended to them in a second write after every post insert; a relational
// backend gets the same observable lists from the owning side for free, and
// they can never drift out of sync.
func (s *AuthorStore) loadAuthorRefs(ctx context.Context, a *model.Author) error {
	posts, err := idList(ctx, s.db.conn,
		`SELECT id FROM posts WHERE author_id = ? ORDER BY created_at, id`, a.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading author %s post refs: %w", a.ID, err)
	}
	a.BlogPosts = posts

	comments, err := idList(ctx, s.db.conn,
		`SELECT id FROM comments WHERE author_id = ? ORDER BY created_at, id`, a.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading author %s comment refs: %w", a.ID, err)
	}
	a.Comments = comments

	return nil
}

// idList runs a single-column string query. Shared by the author and post
// stores for the derived reference lists.
func idList(ctx context.Context, conn *sql.DB, query string, arg any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List retrieves authors with pagination. Reference lists are loaded per
// author; the public author listing is a small, rarely-hit endpoint.
func (s *AuthorStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Author, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+authorColumns+` FROM authors ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing authors: %w", err)
	}
	defer rows.Close()

	authors := make([]model.Author, 0, limit)
	for rows.Next() {
		var (
			a        model.Author
			googleID sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &googleID, &email, &a.PasswordHash, &a.Name, &a.Surname,
			&a.BirthDate, &a.Avatar, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning author row: %w", err)
		}
		a.GoogleID = stringOrEmpty(googleID)
		a.Email = stringOrEmpty(email)
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating authors: %w", err)
	}

	for i := range authors {
		if err := s.loadAuthorRefs(ctx, &authors[i]); err != nil {
			return nil, err
		}
	}

	return authors, nil
}

// Update rewrites the mutable profile fields of an existing author.
// Returns apperror.ErrNotFound if the author doesn't exist.
func (s *AuthorStore) Update(ctx context.Context, author *model.Author) error {
	author.UpdatedAt = time.Now()

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE authors
		 SET email = ?, name = ?, surname = ?, birth_date = ?, avatar = ?, updated_at = ?
		 WHERE id = ?`,
		nullable(author.Email),
		author.Name,
		author.Surname,
		author.BirthDate,
		author.Avatar,
		author.UpdatedAt,
		author.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("author", author.Email)
		}
		return fmt.Errorf("sqlite: updating author %s: %w", author.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("author", author.ID)
	}

	return nil
}

// Delete removes an author record. Posts and comments keep their (now
// dangling) author_id on purpose — no cascade.
func (s *AuthorStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting author %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("author", id)
	}

	return nil
}

// DeleteAll wipes the authors collection. Setup/testing mode only.
func (s *AuthorStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM authors`); err != nil {
		return fmt.Errorf("sqlite: deleting all authors: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// stable message prefix the engine produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
