package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/strivelab/strive-blog/internal/apperror"
)

// imageExtensions is the allowlist for cover and avatar uploads. Checking
// the extension is enough here: the object store re-derives the content
// type from it, and nothing ever executes the bytes.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// formFile extracts the uploaded image from a multipart body.
//
// MaxBytesReader caps the whole request: a client streaming a 2 GB "avatar"
// gets cut off at the limit instead of filling the disk. The caller must
// Close the returned file.
func formFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, apperror.ValidationFailed(field, "file exceeds the upload size limit")
		}
		return nil, nil, apperror.ValidationFailed(field, "invalid multipart body")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperror.ValidationFailed(field, "missing file field '"+field+"'")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		file.Close()
		return nil, nil, apperror.ValidationFailed(field, "unsupported image type "+ext)
	}

	return file, header, nil
}
