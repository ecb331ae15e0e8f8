package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/service"
)

// AuthHandler manages registration, password login, the Google OAuth flow,
// and the authenticated /authors/auth/me profile endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a password author, return a token
//   - HandleLogin          → verify credentials, return a token
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → receive the code, find-or-create, redirect with token
//   - HandleMe / HandleUpdateMe / HandleDeleteMe → the logged-in author's profile
type AuthHandler struct {
	authSvc   *service.AuthService
	authorSvc *service.AuthorService
	google    *auth.GoogleProvider // nil when Google OAuth is not configured
	// frontendURL is where the OAuth callback sends the browser back to,
	// token in hand.
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil; the server only
// registers the Google routes when it isn't.
func NewAuthHandler(
	authSvc *service.AuthService,
	authorSvc *service.AuthorService,
	google *auth.GoogleProvider,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authSvc:     authSvc,
		authorSvc:   authorSvc,
		google:      google,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// registerRequest is the POST /authors/register body.
//
// VALIDATE TAGS:
// go-playground/validator reads these tags in decodeBody. The handler never
// hand-rolls "is the email empty" checks — the tags are the contract.
// Registration requires all five profile fields; only the avatar is
// optional. Google signups are the one path that may leave surname and
// birth date blank, and they never pass through this DTO.
type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Name      string `json:"name" validate:"required"`
	Surname   string `json:"surname" validate:"required"`
	BirthDate string `json:"birthDate" validate:"required"`
	Avatar    string `json:"avatar" validate:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse bundles the token with the author so the frontend can store
// both in one round trip.
type authResponse struct {
	Token  string `json:"token"`
	Author any    `json:"author"`
}

// HandleRegister creates a password author and logs them in.
//
// HTTP: POST /authors/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		BirthDate: req.BirthDate,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: result.Token, Author: result.Author})
}

// HandleLogin verifies an email/password pair.
//
// HTTP: POST /authors/login
//
// Every rejection is the same 401 body — see AuthService.Login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, Author: result.Author})
}

// HandleGoogleLogin redirects the user to Google's consent page.
//
// HTTP: GET /auth/login-google
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When Google calls back, HandleGoogleCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a Google profile
//  3. Find-or-create the author by Google subject id
//  4. Redirect to the frontend with the JWT in the query string
//
// WHY A QUERY-STRING TOKEN INSTEAD OF A COOKIE?
// The API and the frontend live on different origins; a cookie set here
// would never be sent to the frontend's domain. The redirect hands the
// token over once, and the frontend stores it and uses Bearer headers from
// then on.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid OAuth state",
		})
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid OAuth state",
		})
		return
	}

	// The state cookie is single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user clicked "cancel" on the consent page
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied",
			slog.String("error", errParam))
		http.Redirect(w, r, h.frontendURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "missing OAuth code",
		})
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: "authentication failed",
		})
		return
	}

	// --- Step 3: Find or create the author, issue the token ---
	result, err := h.authSvc.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		writeError(w, err)
		return
	}

	// --- Step 4: Hand the token to the frontend ---
	redirect := h.frontendURL + "/?token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// HandleMe returns the authenticated author's own record.
//
// HTTP: GET /authors/auth/me
// Auth: Required (RequireAuthor resolved the token to a live author)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		// Unreachable on a gated route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// updateMeRequest is the PUT /authors/auth/me body. Every field is
// optional; empty fields leave the profile untouched.
type updateMeRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	BirthDate string `json:"birthDate"`
	Avatar    string `json:"avatar" validate:"omitempty,url"`
}

// HandleUpdateMe edits the authenticated author's profile.
//
// HTTP: PUT /authors/auth/me
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	var req updateMeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	author, err := h.authorSvc.UpdateProfile(r.Context(), me, service.AuthorInput{
		Email:     req.Email,
		Name:      req.Name,
		Surname:   req.Surname,
		BirthDate: req.BirthDate,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, author)
}

// HandleDeleteMe deletes the authenticated author's account. Their posts
// and comments stay behind with dangling references.
//
// HTTP: DELETE /authors/auth/me
func (h *AuthHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	if err := h.authorSvc.DeleteProfile(r.Context(), me); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
