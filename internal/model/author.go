// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Author represents a registered identity that may own posts and comments.
//
// An author is created either by email/password registration or on first
// Google login. That means almost every field except Name is optional:
//
//   - Email is empty for the rare Google account that hides its email.
//     When present it is globally unique (UNIQUE index in the store).
//   - PasswordHash is empty for pure-OAuth authors. It is NEVER serialized —
//     the `json:"-"` tag strips it from every API response.
//   - GoogleID is Google's stable subject id ("sub" claim). Unique when set,
//     empty for password-only authors.
//
// WHY GoogleID string (not int64)?
// Google subject ids are decimal strings up to 255 characters per the OpenID
// Connect spec. Parsing them into an integer would be both lossy and pointless —
// we only ever compare them for equality.
type Author struct {
	ID           string    `json:"id"`
	GoogleID     string    `json:"googleId,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never leaves the server
	Name         string    `json:"name"`
	Surname      string    `json:"surname,omitempty"` // Google sometimes omits the family name
	BirthDate    string    `json:"birthDate,omitempty"`
	Avatar       string    `json:"avatar,omitempty"` // URL into object storage
	BlogPosts    []string  `json:"blogPosts"`        // IDs of owned posts, oldest first
	Comments     []string  `json:"comments"`         // IDs of authored comments, oldest first
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicAuthor is the reduced author projection embedded in post listings.
// Only the display name is exposed — no email, no ids, nothing an
// unauthenticated reader shouldn't see.
type PublicAuthor struct {
	Name    string `json:"name"`
	Surname string `json:"surname,omitempty"`
}

// Public returns the reduced projection of the author.
func (a *Author) Public() PublicAuthor {
	return PublicAuthor{Name: a.Name, Surname: a.Surname}
}
