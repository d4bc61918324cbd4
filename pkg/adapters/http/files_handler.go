// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/doodlechat/doodle-gw/pkg/core/services"
	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

type fileResponse struct {
	ID            string `json:"id"`
	Object        string `json:"object"` // always "file"
	Bytes         int64  `json:"bytes"`
	CreatedAt     int64  `json:"created_at"`
	Filename      string `json:"filename"`
	Format        string `json:"format"`
	MimeType      string `json:"mime_type,omitempty"`
	Status        string `json:"status"`
	StatusDetails string `json:"status_details,omitempty"`
}

type uploadResponse struct {
	fileResponse
	Text string `json:"text"`
}

type listFilesResponse struct {
	Object  string         `json:"object"` // always "list"
	Data    []fileResponse `json:"data"`
	FirstID string         `json:"first_id,omitempty"`
	LastID  string         `json:"last_id,omitempty"`
	HasMore bool           `json:"has_more"`
}

type fileTextResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Text     string `json:"text"`
}

func toFileResponse(f *filestore.File) fileResponse {
	return fileResponse{
		ID:            f.ID,
		Object:        "file",
		Bytes:         f.Bytes,
		CreatedAt:     f.CreatedAt.Unix(),
		Filename:      f.Filename,
		Format:        f.Format,
		MimeType:      f.MimeType,
		Status:        f.Status,
		StatusDetails: f.StatusDetails,
	}
}

// handleUploadFile handles POST /api/files
func (h *Handler) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	name, mimeType, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	owner := ownerFrom(r.Context())

	res, err := h.opts.Files.Upload(r.Context(), owner, name, mimeType, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFilename):
			h.writeError(w, http.StatusBadRequest, "Filename is required")
		case errors.Is(err, services.ErrFileTooLarge):
			h.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			h.logger.Error("Failed to store file", "error", err, "filename", name)
			h.writeError(w, http.StatusInternalServerError, "Failed to store file")
		}
		return
	}

	h.logger.Info("File uploaded",
		"file_id", res.File.ID,
		"filename", res.File.Filename,
		"bytes", res.File.Bytes,
		"status", res.File.Status)

	writeJSON(w, http.StatusOK, uploadResponse{fileResponse: toFileResponse(res.File), Text: res.Text})
}

// handleListFiles handles GET /api/files
func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	after := query.Get("after")
	before := query.Get("before")
	order := query.Get("order")

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > 100 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = l
	}

	files, hasMore, err := h.opts.Files.List(r.Context(), ownerFrom(r.Context()), after, before, limit, order)
	if err != nil {
		h.logger.Error("Failed to list files", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	resp := listFilesResponse{Object: "list", Data: make([]fileResponse, 0, len(files)), HasMore: hasMore}
	for _, f := range files {
		resp.Data = append(resp.Data, toFileResponse(f))
	}
	if len(resp.Data) > 0 {
		resp.FirstID = resp.Data[0].ID
		resp.LastID = resp.Data[len(resp.Data)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetFile handles GET /api/files/{id}
func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.opts.Files.Get(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeFileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f))
}

// handleGetFileContent handles GET /api/files/{id}/content
func (h *Handler) handleGetFileContent(w http.ResponseWriter, r *http.Request) {
	f, content, err := h.opts.Files.Content(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeFileError(w, err)
		return
	}

	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(f.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// handleGetFileText handles GET /api/files/{id}/text
func (h *Handler) handleGetFileText(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	owner := ownerFrom(r.Context())

	f, err := h.opts.Files.Get(r.Context(), owner, id)
	if err != nil {
		h.writeFileError(w, err)
		return
	}
	res, err := h.opts.Files.Text(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			h.writeFileError(w, err)
			return
		}
		h.writeExtractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fileTextResponse{ID: f.ID, Filename: f.Filename, Format: res.Format.String(), Text: res.Text})
}

// handleDeleteFile handles DELETE /api/files/{id}
func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.opts.Files.Delete(r.Context(), ownerFrom(r.Context()), id); err != nil {
		h.writeFileError(w, err)
		return
	}
	h.logger.Info("File deleted", "file_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "file.deleted", "deleted": true})
}

func (h *Handler) writeFileError(w http.ResponseWriter, err error) {
	if errors.Is(err, filestore.ErrFileNotFound) {
		h.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	h.logger.Error("File store failure", "error", err)
	h.writeError(w, http.StatusInternalServerError, "File store unavailable")
}
