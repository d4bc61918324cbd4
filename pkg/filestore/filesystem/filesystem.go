// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

func init() {
	filestore.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (filestore.FileStore, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// sidecar is the on-disk metadata record.
type sidecar struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type,omitempty"`
	Format        string    `json:"format,omitempty"`
	Bytes         int64     `json:"bytes"`
	Status        string    `json:"status"`
	StatusDetails string    `json:"status_details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toSidecar(f *filestore.File) sidecar {
	return sidecar{
		ID:            f.ID,
		OwnerID:       f.OwnerID,
		Filename:      f.Filename,
		MimeType:      f.MimeType,
		Format:        f.Format,
		Bytes:         f.Bytes,
		Status:        f.Status,
		StatusDetails: f.StatusDetails,
		CreatedAt:     f.CreatedAt,
	}
}

func (m sidecar) file() *filestore.File {
	return &filestore.File{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Filename:      m.Filename,
		MimeType:      m.MimeType,
		Format:        m.Format,
		Bytes:         m.Bytes,
		Status:        m.Status,
		StatusDetails: m.StatusDetails,
		CreatedAt:     m.CreatedAt,
	}
}

// Store keeps each upload in its own directory:
//
//	<baseDir>/<file_id>/content
//	<baseDir>/<file_id>/metadata.json
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if needed.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("filesystem file store: base_dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// dir resolves the directory for fileID. IDs that could escape baseDir
// are treated as missing.
func (s *Store) dir(fileID string) (string, error) {
	if fileID == "" || fileID == "." || fileID == ".." || strings.ContainsAny(fileID, `/\`) {
		return "", fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
	}
	return filepath.Join(s.baseDir, fileID), nil
}

// CreateFile writes content then metadata, each via temp file + rename.
func (s *Store) CreateFile(_ context.Context, file *filestore.File) error {
	dir, err := s.dir(file.ID)
	if err != nil {
		return fmt.Errorf("invalid file id %q", file.ID)
	}
	if _, err := os.Stat(filepath.Join(dir, "metadata.json")); err == nil {
		return fmt.Errorf("file %s already exists", file.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create file dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, "content"), file.Content); err != nil {
		return fmt.Errorf("write content: %w", err)
	}

	meta, err := json.Marshal(toSidecar(file))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// GetFile returns file metadata (Content is nil).
func (s *Store) GetFile(_ context.Context, fileID string) (*filestore.File, error) {
	meta, err := s.readMetadata(fileID)
	if err != nil {
		return nil, err
	}
	return meta.file(), nil
}

// GetFileContent returns the raw file bytes.
func (s *Store) GetFileContent(_ context.Context, fileID string) ([]byte, error) {
	dir, err := s.dir(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "content"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

// DeleteFile removes the file directory.
func (s *Store) DeleteFile(_ context.Context, fileID string) error {
	dir, err := s.dir(fileID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return fmt.Errorf("stat file dir: %w", err)
	}
	return os.RemoveAll(dir)
}

// ListFilesPaginated scans baseDir for metadata sidecars.
func (s *Store) ListFilesPaginated(_ context.Context, after, before string, limit int, order, ownerID string) ([]*filestore.File, bool, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, false, fmt.Errorf("read base dir: %w", err)
	}

	var all []*filestore.File
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue // half-written or foreign directory
		}
		if ownerID != "" && meta.OwnerID != ownerID {
			continue
		}
		all = append(all, meta.file())
	}

	page, hasMore := filestore.Paginate(all, after, before, limit, order)
	return page, hasMore, nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) readMetadata(fileID string) (*sidecar, error) {
	dir, err := s.dir(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for %s: %w", fileID, err)
	}
	return &meta, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
