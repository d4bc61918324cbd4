// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/doodlechat/doodle-gw/pkg/extractor"
	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

var (
	ErrMissingFilename = errors.New("filename is required")
	ErrFileTooLarge    = errors.New("file exceeds maximum upload size")
)

// UploadResult is a stored file plus the text extracted from it. Text is
// empty when File.Status is filestore.StatusError.
type UploadResult struct {
	File *filestore.File
	Text string
}

// FileService stores uploads and runs them through the extractor.
type FileService struct {
	store     filestore.FileStore
	extractor *extractor.Extractor
	maxBytes  int64
	now       func() time.Time
}

// NewFileService creates a file service. maxBytes <= 0 disables the size
// check.
func NewFileService(store filestore.FileStore, ex *extractor.Extractor, maxBytes int64) *FileService {
	if ex == nil {
		ex = extractor.New()
	}
	return &FileService{store: store, extractor: ex, maxBytes: maxBytes, now: time.Now}
}

// Upload extracts text from content and stores the file with status
// processed, or error plus the extraction message. Extraction failures are
// recorded, not returned.
func (s *FileService) Upload(ctx context.Context, ownerID, filename, mimeType string, content []byte) (*UploadResult, error) {
	name := cleanFilename(filename)
	if name == "" {
		return nil, ErrMissingFilename
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(content), s.maxBytes)
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = SniffMIME(content)
	}

	f := &filestore.File{
		ID:        "file_" + uuid.NewString(),
		OwnerID:   ownerID,
		Filename:  name,
		MimeType:  mimeType,
		Format:    extractor.FormatFromFilename(name).String(),
		Bytes:     int64(len(content)),
		Content:   content,
		Status:    filestore.StatusProcessed,
		CreatedAt: s.now().UTC(),
	}

	res, err := s.extractor.Extract(extractor.File{Name: name, MimeType: mimeType, Content: content})
	var text string
	if err != nil {
		f.Status = filestore.StatusError
		f.StatusDetails = err.Error()
	} else {
		text = res.Text
	}

	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	return &UploadResult{File: filestore.MetadataOnly(f), Text: text}, nil
}

// Get returns metadata for a file owned by ownerID. Files of other owners
// are reported as not found.
func (s *FileService) Get(ctx context.Context, ownerID, fileID string) (*filestore.File, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
	}
	return f, nil
}

// Content returns metadata and raw bytes of an owned file.
func (s *FileService) Content(ctx context.Context, ownerID, fileID string) (*filestore.File, []byte, error) {
	f, err := s.Get(ctx, ownerID, fileID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	return f, data, nil
}

// Text re-extracts an owned file from its stored bytes. Extraction errors
// are returned as *extractor.Error.
func (s *FileService) Text(ctx context.Context, ownerID, fileID string) (*extractor.Result, error) {
	f, data, err := s.Content(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(extractor.File{Name: f.Filename, MimeType: f.MimeType, Content: data})
}

// Delete removes an owned file.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	if _, err := s.Get(ctx, ownerID, fileID); err != nil {
		return err
	}
	return s.store.DeleteFile(ctx, fileID)
}

// List pages through the owner's files.
func (s *FileService) List(ctx context.Context, ownerID, after, before string, limit int, order string) ([]*filestore.File, bool, error) {
	if order != "asc" {
		order = "desc"
	}
	return s.store.ListFilesPaginated(ctx, after, before, limit, order, ownerID)
}

// SniffMIME guesses a MIME type from magic bytes, falling back to the
// net/http sniffer for text.
func SniffMIME(content []byte) string {
	if kind, err := filetype.Match(content); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return http.DetectContentType(content)
}

// cleanFilename drops any directory components a client sent.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
