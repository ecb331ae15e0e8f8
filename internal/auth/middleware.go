package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/strivelab/strive-blog/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "author", a), ANY package that knows the string
// "author" can read or shadow your value. Using a package-private type means
// only THIS package can read or write author values in the context.
type contextKey string

const authorKey contextKey = "author"

// AuthorFinder resolves a token subject to a live author record.
// The repository's author store satisfies this; tests plug in a fake.
type AuthorFinder interface {
	GetByID(ctx context.Context, id string) (*model.Author, error)
}

// unauthorizedBody is the one JSON payload every gate rejection returns.
// Missing header, malformed scheme, bad signature, expired token, deleted
// author — all identical on the wire, so callers can't probe which check
// failed.
const unauthorizedBody = `{"error":"unauthenticated","message":"valid authentication required"}`

// RequireAuthor is the authorization gate applied to protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header, validates
// it, resolves the embedded author ID to a live record, and stores the author
// in the request context. If any step fails it returns 401 Unauthorized and
// stops the request chain.
//
// Resolving the record (not just trusting the token's subject) matters for
// one edge case: a valid token issued to an author who has since deleted
// their account must be rejected, not waved through with a ghost identity.
//
// The resolved author has its password hash zeroed before it enters the
// context — downstream handlers serialize this struct, and even a correct
// json tag shouldn't be the only thing between a bcrypt hash and the wire.
//
// This is a pure pre-condition check: no side effects beyond the context
// attachment.
func RequireAuthor(tokens *TokenService, authors AuthorFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			authorID, err := tokens.Verify(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			author, err := authors.GetByID(r.Context(), authorID)
			if err != nil {
				// Valid token, but the author no longer exists.
				unauthorized(w)
				return
			}
			author.PasswordHash = ""

			ctx := context.WithValue(r.Context(), authorKey, author)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthorFromContext retrieves the authenticated author from the request context.
//
// Returns (nil, false) if the request is anonymous. On routes behind
// RequireAuthor it always returns (author, true).
//
// Usage in handlers:
//
//	author, ok := auth.AuthorFromContext(r.Context())
//	if !ok {
//	    // anonymous request
//	}
func AuthorFromContext(ctx context.Context) (*model.Author, bool) {
	a, ok := ctx.Value(authorKey).(*model.Author)
	return a, ok && a != nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns false for a missing header or a malformed scheme.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(unauthorizedBody))
}
