// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → AuthorRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ Mailer (welcome email)
//
// KEY RESPONSIBILITIES:
//   - Register password authors and log them in afterwards
//   - Verify password logins without leaking which part was wrong
//   - Orchestrate the Google OAuth callback: find-or-create, issue tokens
//   - Encapsulate all auth rules in one place, away from HTTP concerns
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/strivelab/strive-blog/internal/apperror"
	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/mailer"
	"github.com/strivelab/strive-blog/internal/metrics"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/repository"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	authors   repository.AuthorRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mail      mailer.Mailer
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	authors repository.AuthorRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mail mailer.Mailer,
	rec metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		authors:   authors,
		tokens:    tokens,
		passwords: passwords,
		mail:      mail,
		metrics:   rec,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations.
// It bundles the author record and the issued JWT together so the caller
// (the HTTP handler) can respond in one step.
type AuthResult struct {
	Author *model.Author
	Token  string
}

// RegisterInput carries the fields a new password author supplies.
type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	Surname   string
	BirthDate string
	Avatar    string
}

// Register creates a password author and logs them in.
//
// The duplicate-email check happens twice: a friendly lookup here, and the
// UNIQUE constraint in the repository as the backstop against a race between
// the check and the insert. Both surface as apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	_, err := s.authors.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperror.Conflict("author", email)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email %s: %w", email, err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	author := &model.Author{
		Email:        email,
		PasswordHash: hash,
		Name:         in.Name,
		Surname:      in.Surname,
		BirthDate:    in.BirthDate,
		Avatar:       in.Avatar,
	}
	if err := s.authors.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("service/auth: creating author: %w", err)
	}

	s.metrics.RecordRegistration()
	s.logger.Info("author registered",
		slog.String("authorID", author.ID),
		slog.String("email", author.Email),
	)

	// Email is best-effort: a down SMTP server must not fail the
	// registration that already happened.
	if err := s.mail.SendWelcome(ctx, author.Email, author.Name); err != nil {
		s.metrics.RecordEmailFailure()
		s.logger.Error("welcome email failed",
			slog.String("authorID", author.ID),
			slog.String("error", err.Error()),
		)
	}

	return s.loginAs(author, "password")
}

// Login verifies an email/password pair and issues a token.
//
// SECURITY — UNIFORM FAILURES:
// Every failure path (unknown email, Google-only account, wrong password)
// returns the same generic error. Distinguishing them would let an attacker
// probe which emails have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	author, err := s.authors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, s.loginRejected(email)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	// A Google-only account has no hash; bcrypt would reject it anyway,
	// but skipping the compare keeps the timing consistent with not-found.
	if author.PasswordHash == "" {
		return nil, s.loginRejected(email)
	}

	if err := s.passwords.Verify(author.PasswordHash, password); err != nil {
		return nil, s.loginRejected(email)
	}

	return s.loginAs(author, "password")
}

func (s *AuthService) loginRejected(email string) error {
	s.metrics.RecordLoginFailure()
	s.logger.Warn("login rejected", slog.String("email", email))
	return apperror.Unauthenticated("invalid credentials")
}

// LoginOrRegisterGoogle handles the Google OAuth callback.
//
// After the handler exchanges the authorization code for a profile, this
// method finds the author by Google subject id — the stable key Google
// guarantees — or creates one on first login. Either way it ends with a
// token, so the handler can redirect to the frontend.
//
// A first Google login with an email that already belongs to a password
// account fails with ErrConflict. Silently attaching the Google identity to
// the password account would let anyone with a matching Google email take
// over the account.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	author, err := s.authors.GetByGoogleID(ctx, gUser.Sub)
	if err == nil {
		return s.loginAs(author, "google")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google subject: %w", err)
	}

	// First login: create the author from the Google profile. No password
	// hash — this account can only ever log in through Google.
	author = &model.Author{
		GoogleID: gUser.Sub,
		Email:    normalizeEmail(gUser.Email),
		Name:     gUser.GivenName,
		Surname:  gUser.FamilyName,
		Avatar:   gUser.Picture,
	}
	if err := s.authors.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("service/auth: creating google author: %w", err)
	}

	s.metrics.RecordRegistration()
	s.logger.Info("author registered via Google",
		slog.String("authorID", author.ID),
	)

	if author.Email != "" {
		if err := s.mail.SendWelcome(ctx, author.Email, author.Name); err != nil {
			s.metrics.RecordEmailFailure()
			s.logger.Error("welcome email failed",
				slog.String("authorID", author.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.loginAs(author, "google")
}

// loginAs issues the JWT and packages the result.
func (s *AuthService) loginAs(author *model.Author, method string) (*AuthResult, error) {
	token, err := s.tokens.Issue(author.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", author.ID, err)
	}

	s.metrics.RecordLogin(method)

	// Never hand the hash back up the stack.
	author.PasswordHash = ""

	return &AuthResult{Author: author, Token: token}, nil
}

// normalizeEmail lowercases and trims an address. Every path that stores or
// looks up an email goes through this, so a case-variant written on one
// route can never shadow the canonical form another route searches for.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
