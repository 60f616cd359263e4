package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudacct/accountsvc/internal/services"
	"github.com/go-chi/chi/v5"
)

const maxImageBytes = 10 << 20

// ImageVault stores and removes profile images by object key.
type ImageVault interface {
	Put(ctx context.Context, accountID int64, filename string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// EmailSender sends the upload/deletion notification emails.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ImageHandler provides the /v1/user/self/pic endpoints.
type ImageHandler struct {
	images ImageVault
	mail   EmailSender
}

func NewImageHandler(images ImageVault, mail EmailSender) *ImageHandler {
	return &ImageHandler{images: images, mail: mail}
}

// ImageRouter registers the image routes behind the basic-auth middleware.
func ImageRouter(r chi.Router, images ImageVault, mail EmailSender, auth func(http.Handler) http.Handler) {
	handler := NewImageHandler(images, mail)

	r.With(auth).Post("/user/self/pic", handler.Upload)
	r.With(auth).Delete("/user/self/pic", handler.Delete)
}

type UploadResponse struct {
	Message string `json:"message"`
	FileKey string `json:"file_key"`
}

// Upload handles POST /v1/user/self/pic.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !account.Verified {
		writeError(w, http.StatusForbidden, "access denied, verify your email to access this resource")
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.notify(r, account.Email, "Image Upload Failed", "No image file was provided for upload.")
		writeError(w, http.StatusBadRequest, "no image file provided")
		return
	}
	defer file.Close()

	// Read one byte past the limit so an oversized upload is detected
	// instead of stored truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read image")
		return
	}
	if len(data) > maxImageBytes {
		h.notify(r, account.Email, "Image Upload Failed", "The image exceeds the maximum allowed size.")
		writeError(w, http.StatusBadRequest, "image exceeds the maximum allowed size")
		return
	}

	key, err := h.images.Put(r.Context(), account.ID, header.Filename, data)
	if err != nil {
		h.notify(r, account.Email, "Image Upload Failed", "Your image upload failed due to an internal error.")
		writeError(w, http.StatusInternalServerError, "failed to upload image")
		return
	}

	h.notify(r, account.Email, "Image Upload Successful",
		fmt.Sprintf("Your image has been successfully uploaded with key %s.", key))
	writeJSON(w, http.StatusCreated, UploadResponse{
		Message: "image uploaded successfully",
		FileKey: key,
	})
}

// Delete handles DELETE /v1/user/self/pic?file_key=.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !account.Verified {
		writeError(w, http.StatusForbidden, "access denied, verify your email to access this resource")
		return
	}

	key := r.URL.Query().Get("file_key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "file_key is required to delete an image")
		return
	}

	if err := h.images.Delete(r.Context(), key); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.notify(r, account.Email, "Image Deletion Failed", "Your image deletion failed due to an internal error.")
		writeError(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	h.notify(r, account.Email, "Image Deletion Successful",
		fmt.Sprintf("Your image with key %s has been successfully deleted.", key))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "image deleted successfully"})
}

// notify sends a best-effort status email; failures never change the
// response.
func (h *ImageHandler) notify(r *http.Request, to, subject, body string) {
	_ = h.mail.SendEmail(r.Context(), to, subject, body)
}
