package controller

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/service"
)

// maxStagingRequestBytes bounds one multipart request
const maxStagingRequestBytes = 8 * service.MaxUploadBytes

// StagingController handles the per-form upload staging sets
type StagingController struct {
	staging *service.StagingRegistry
}

// NewStagingController creates a new StagingController
func NewStagingController(staging *service.StagingRegistry) *StagingController {
	return &StagingController{staging: staging}
}

// StagingResponse describes a staging set
type StagingResponse struct {
	ID     string                `json:"id"`
	Images []service.StagedImage `json:"images"`
}

// FailedFile is a file that could not be staged
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// AddImagesResponse reports the outcome of a batch of files
type AddImagesResponse struct {
	StagingResponse
	Added  []string     `json:"added"`
	Failed []FailedFile `json:"failed"`
}

// Create handles POST /admin/staging
func (c *StagingController) Create(w http.ResponseWriter, r *http.Request) {
	id := c.staging.Create()
	writeJSON(w, http.StatusCreated, StagingResponse{ID: id, Images: []service.StagedImage{}})
}

// Get handles GET /admin/staging/{id}
func (c *StagingController) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	images, err := c.staging.Snapshot(id)
	if err != nil {
		writeError(w, "GetStaging", err)
		return
	}
	writeJSON(w, http.StatusOK, StagingResponse{ID: id, Images: images})
}

// Discard handles DELETE /admin/staging/{id}
func (c *StagingController) Discard(w http.ResponseWriter, r *http.Request) {
	c.staging.Discard(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// AddImages handles POST /admin/staging/{id}/images with multipart field "files".
// Files are downscaled one at a time in the order given; a file that fails
// is reported and the rest are still staged.
func (c *StagingController) AddImages(w http.ResponseWriter, r *http.Request) {
	const op = "AddStagedImages"
	id := r.PathValue("id")

	if _, err := c.staging.Snapshot(id); err != nil {
		writeError(w, op, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStagingRequestBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, op, apperror.Validation(op, fmt.Sprintf("invalid multipart form: %v", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, op, apperror.Validation(op, "no files selected"))
		return
	}

	blobs := make([]service.NamedBlob, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, op, apperror.Validation(op, fmt.Sprintf("failed to read %s", fh.Filename)))
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, service.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			writeError(w, op, apperror.Validation(op, fmt.Sprintf("failed to read %s", fh.Filename)))
			return
		}
		blobs = append(blobs, service.NamedBlob{Name: fh.Filename, Data: data})
	}

	resp := AddImagesResponse{
		Added:  []string{},
		Failed: []FailedFile{},
	}
	var firstErr error
	for _, result := range service.DownscaleBatch(r.Context(), blobs, service.UploadOptions) {
		if result.Err != nil {
			if firstErr == nil {
				firstErr = result.Err
			}
			resp.Failed = append(resp.Failed, FailedFile{
				Name:  result.Name,
				Error: apperror.MessageOf(result.Err),
				Kind:  string(apperror.KindOf(result.Err)),
			})
			continue
		}
		localID, err := c.staging.Add(id, result.Name, service.UploadOptions.ContentType(), result.Data)
		if err != nil {
			// the set expired while processing
			writeError(w, op, err)
			return
		}
		resp.Added = append(resp.Added, localID)
	}

	if len(resp.Added) == 0 {
		writeError(w, op, firstErr)
		return
	}

	images, err := c.staging.Snapshot(id)
	if err != nil {
		writeError(w, op, err)
		return
	}
	resp.StagingResponse = StagingResponse{ID: id, Images: images}

	logger.Get().Info("📷 Staged images",
		zap.String("staging_id", id),
		zap.Int("added", len(resp.Added)),
		zap.Int("failed", len(resp.Failed)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// RemoveImage handles DELETE /admin/staging/{id}/images/{localId}
func (c *StagingController) RemoveImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := c.staging.Remove(id, r.PathValue("localId")); err != nil {
		writeError(w, "RemoveStagedImage", err)
		return
	}
	images, err := c.staging.Snapshot(id)
	if err != nil {
		writeError(w, "RemoveStagedImage", err)
		return
	}
	writeJSON(w, http.StatusOK, StagingResponse{ID: id, Images: images})
}
