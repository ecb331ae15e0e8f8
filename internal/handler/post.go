package handler

import (
	"net/http"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/model"
	"github.com/strivelab/strive-blog/internal/service"
)

// PostHandler serves the public post listing plus two write families:
// ownership-checked routes under /blogposts/auth, and unauthenticated
// setup/testing mirrors that act as a configured default author.
type PostHandler struct {
	posts *service.PostService
	// defaultAuthorID owns posts created through the setup routes.
	defaultAuthorID string
	storageReady    bool
	maxUploadSize   int64
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts *service.PostService, defaultAuthorID string, storageReady bool, maxUploadSize int64) *PostHandler {
	return &PostHandler{
		posts:           posts,
		defaultAuthorID: defaultAuthorID,
		storageReady:    storageReady,
		maxUploadSize:   maxUploadSize,
	}
}

// HandleList returns one page of posts with pagination metadata.
//
// HTTP: GET /blogposts?_page=1&_limit=10
//
// RESPONSE FORMAT:
//
//	{
//	  "totalPosts": 15,
//	  "totalPages": 2,
//	  "currentPage": 1,
//	  "posts": [ {..., "author": {"name": "...", "surname": "..."}}, ... ]
//	}
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	result, err := h.posts.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns a single post.
//
// HTTP: GET /blogposts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// postRequest is the create/update body. readTime mirrors the frontend's
// {value, unit} shape.
type postRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Cover    string `json:"cover" validate:"omitempty,url"`
	ReadTime struct {
		Value int    `json:"value" validate:"omitempty,min=1"`
		Unit  string `json:"unit"`
	} `json:"readTime"`
	Content string `json:"content"`
}

// createPostRequest tightens the rules for creation: a post must at least
// have a title and content.
type createPostRequest struct {
	Category string `json:"category" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Cover    string `json:"cover" validate:"omitempty,url"`
	ReadTime struct {
		Value int    `json:"value" validate:"required,min=1"`
		Unit  string `json:"unit" validate:"required"`
	} `json:"readTime"`
	Content string `json:"content" validate:"required"`
}

func (req createPostRequest) toInput() service.PostInput {
	return service.PostInput{
		Category: req.Category,
		Title:    req.Title,
		Cover:    req.Cover,
		ReadTime: model.ReadTime{Value: req.ReadTime.Value, Unit: req.ReadTime.Unit},
		Content:  req.Content,
	}
}

func (req postRequest) toInput() service.PostInput {
	return service.PostInput{
		Category: req.Category,
		Title:    req.Title,
		Cover:    req.Cover,
		ReadTime: model.ReadTime{Value: req.ReadTime.Value, Unit: req.ReadTime.Unit},
		Content:  req.Content,
	}
}

// HandleCreateOwn publishes a post owned by the authenticated author.
//
// HTTP: POST /blogposts/auth
func (h *PostHandler) HandleCreateOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	var req createPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), me.ID, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdateOwn edits a post the authenticated author owns.
//
// HTTP: PUT /blogposts/auth/{id}
func (h *PostHandler) HandleUpdateOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	var req postRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.UpdateOwn(r.Context(), me, r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDeleteOwn removes a post the authenticated author owns.
//
// HTTP: DELETE /blogposts/auth/{id}
func (h *PostHandler) HandleDeleteOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	if err := h.posts.DeleteOwn(r.Context(), me, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadCoverOwn replaces the cover of a post the authenticated
// author owns.
//
// HTTP: PATCH /blogposts/auth/{id}/cover
// BODY: multipart/form-data with a "cover" file field
func (h *PostHandler) HandleUploadCoverOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}
	h.uploadCover(w, r, me)
}

// HandleCreate publishes a post as the configured default author.
//
// HTTP: POST /blogposts (setup/testing mode only)
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), h.defaultAuthorID, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate edits any post, no ownership check.
//
// HTTP: PUT /blogposts/{id} (setup/testing mode only)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes any post.
//
// HTTP: DELETE /blogposts/{id} (setup/testing mode only)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteAll wipes every post.
//
// HTTP: DELETE /blogposts (setup/testing mode only)
func (h *PostHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.DeleteAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadCover replaces any post's cover.
//
// HTTP: PATCH /blogposts/{id}/cover (setup/testing mode only)
func (h *PostHandler) HandleUploadCover(w http.ResponseWriter, r *http.Request) {
	h.uploadCover(w, r, nil)
}

func (h *PostHandler) uploadCover(w http.ResponseWriter, r *http.Request, me *model.Author) {
	if !h.storageReady {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "storage_unavailable", Message: "object storage is not configured",
		})
		return
	}

	file, header, err := formFile(w, r, "cover", h.maxUploadSize)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	post, err := h.posts.UploadCover(r.Context(), me, r.PathValue("id"),
		header.Filename, file, header.Size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
