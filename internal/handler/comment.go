package handler

import (
	"net/http"

	"github.com/strivelab/strive-blog/internal/auth"
	"github.com/strivelab/strive-blog/internal/service"
)

// CommentHandler serves comment threads nested under posts.
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// HandleList returns every comment on a post, oldest first.
//
// HTTP: GET /blogposts/{id}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListForPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleGet returns a single comment addressed as post+comment.
//
// HTTP: GET /blogposts/{id}/comments/{commentId}
func (h *CommentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	comment, err := h.comments.Get(r.Context(), r.PathValue("id"), r.PathValue("commentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// HandleCreateOwn adds a comment as the authenticated author.
//
// HTTP: POST /blogposts/auth/{id}/comments
func (h *CommentHandler) HandleCreateOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), me, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleDeleteOwn removes a comment the authenticated author wrote.
//
// HTTP: DELETE /blogposts/auth/{id}/comments/{commentId}
func (h *CommentHandler) HandleDeleteOwn(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.AuthorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthenticated", Message: "valid authentication required",
		})
		return
	}

	if err := h.comments.DeleteOwn(r.Context(), me, r.PathValue("id"), r.PathValue("commentId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreate adds an anonymous comment.
//
// HTTP: POST /blogposts/{id}/comments (setup/testing mode only)
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), nil, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleDelete removes any comment.
//
// HTTP: DELETE /blogposts/{id}/comments/{commentId} (setup/testing mode only)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), r.PathValue("id"), r.PathValue("commentId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
