// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"io"
	"net/http"

	"github.com/doodlechat/doodle-gw/pkg/extractor"
)

// maxMemory is the multipart buffer kept in memory before spilling to disk.
const maxMemory = 32 << 20

type extractResponse struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Text     string `json:"text"`
}

// handleExtract handles POST /api/extract
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	name, mimeType, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	res, err := h.opts.Extractor.Extract(extractor.File{Name: name, MimeType: mimeType, Content: content})
	if err != nil {
		h.logger.Info("Extraction failed", "filename", name, "kind", extractor.KindOf(err).String(), "error", err)
		h.writeExtractError(w, err)
		return
	}

	h.logger.Info("Extracted text", "filename", name, "format", res.Format.String(), "chars", len(res.Text))
	writeJSON(w, http.StatusOK, extractResponse{Filename: name, Format: res.Format.String(), Text: res.Text})
}

// readUpload pulls the "file" part out of a multipart request, writing the
// error response itself when it fails.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, string, []byte, bool) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if isTooLarge(err) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return "", "", nil, false
		}
		h.writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return "", "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "No file provided")
		return "", "", nil, false
	}
	defer file.Close()

	if h.opts.MaxUploadBytes > 0 && header.Size > h.opts.MaxUploadBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return "", "", nil, false
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read file content", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to read file content")
		return "", "", nil, false
	}
	return header.Filename, header.Header.Get("Content-Type"), content, true
}

// writeExtractError maps extraction failures to status codes. The body
// carries the full error text, parser cause included, as stored in a file's
// status_details.
func (h *Handler) writeExtractError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch extractor.KindOf(err) {
	case extractor.KindUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case extractor.KindNotImplemented:
		status = http.StatusNotImplemented
	case extractor.KindCorruptOrUnreadable:
		status = http.StatusUnprocessableEntity
	}

	if extractor.KindOf(err) != 0 {
		h.writeError(w, status, err.Error())
		return
	}
	h.writeError(w, status, "Failed to extract text")
}
