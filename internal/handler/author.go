package handler

import (
	"net/http"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/service"
)

// AuthorHandler serves the author directory and the setup/testing CRUD
// routes, plus the avatar upload.
type AuthorHandler struct {
	authors *service.AuthorService
	// storageReady is false when object storage is not configured; the
	// avatar route then answers 503 instead of panicking on a nil store.
	storageReady  bool
	maxUploadSize int64
}

// NewAuthorHandler creates an AuthorHandler.
func NewAuthorHandler(authors *service.AuthorService, storageReady bool, maxUploadSize int64) *AuthorHandler {
	return &AuthorHandler{
		authors:       authors,
		storageReady:  storageReady,
		maxUploadSize: maxUploadSize,
	}
}

// HandleList returns one page of the author directory.
//
// HTTP: GET /authors?_page=1&_limit=10
func (h *AuthorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	authors, err := h.authors.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

// HandleGet returns a single author.
//
// HTTP: GET /authors/{id}
func (h *AuthorHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	author, err := h.authors.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// authorRequest is the body for the setup create/update routes.
type authorRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"omitempty,min=8,max=72"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	BirthDate string `json:"birthDate"`
	Avatar    string `json:"avatar" validate:"omitempty,url"`
}

func (req authorRequest) toInput() service.AuthorInput {
	return service.AuthorInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		BirthDate: req.BirthDate,
		Avatar:    req.Avatar,
	}
}

// HandleCreate makes an author directly, without registration.
//
// HTTP: POST /authors (setup/testing mode only)
func (h *AuthorHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	author, err := h.authors.Create(r.Context(), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// HandleUpdate rewrites an author's profile by id.
//
// HTTP: PUT /authors/{id} (setup/testing mode only)
func (h *AuthorHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	author, err := h.authors.Update(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// HandleDelete removes an author by id.
//
// HTTP: DELETE /authors/{id} (setup/testing mode only)
func (h *AuthorHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.authors.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadAvatar replaces an author's avatar with an uploaded image.
//
// HTTP: PATCH /authors/{id}/avatar
// BODY: multipart/form-data with an "avatar" file field
func (h *AuthorHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.uploadAvatar(w, r, r.PathValue("id"))
}

// HandleUploadMyAvatar replaces the authenticated author's own avatar.
//
// HTTP: PATCH /authors/auth/me/avatar
func (h *AuthorHandler) HandleUploadMyAvatar(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}
	h.uploadAvatar(w, r, me.ID)
}

func (h *AuthorHandler) uploadAvatar(w http.ResponseWriter, r *http.Request, authorID string) {
	if !h.storageReady {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "storage_unavailable", Message: "object storage is not configured",
		})
		return
	}

	file, header, err := formFile(w, r, "avatar", h.maxUploadSize)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	author, err := h.authors.UploadAvatar(r.Context(), authorID,
		header.Filename, file, header.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// HandleDeleteAll wipes the author collection.
//
// HTTP: DELETE /authors (setup/testing mode only)
func (h *AuthorHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.authors.DeleteAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
