package model

import "time"

// ReadTime is the estimated reading time of a post, e.g. {5, "minutes"}.
// The unit travels with the value because the frontend renders it verbatim.
type ReadTime struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Post represents a published blog post.
//
// AuthorID always holds exactly one owner reference. Deleting an author does
// NOT cascade to their posts, so AuthorID may dangle; listings render a
// zero-value Author projection in that case rather than failing.
type Post struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Cover    string   `json:"cover"` // cover image URL
	ReadTime ReadTime `json:"readTime"`
	Content  string   `json:"content"`
	Comments []string `json:"comments"` // IDs of comments on this post, oldest first
	AuthorID string   `json:"authorId"`

	// Author is the denormalized (name, surname) projection of the owner.
	// Filled by the service layer on reads; nil when the owner no longer exists.
	Author *PublicAuthor `json:"author,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostPage is one page of a post listing plus its pagination metadata.
// The field names mirror what the frontend already consumes.
type PostPage struct {
	TotalPosts  int    `json:"totalPosts"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	Posts       []Post `json:"posts"`
}
