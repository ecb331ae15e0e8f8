package model

import "time"

// Comment is a reader comment attached to a post.
// AuthorID references the commenting author and may dangle after an author
// deletes their account (same policy as Post.AuthorID).
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId,omitempty"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
