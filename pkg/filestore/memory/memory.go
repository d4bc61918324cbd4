// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

func init() {
	filestore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (filestore.FileStore, error) {
		return New(), nil
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// Store is an in-memory file store.
type Store struct {
	mu    sync.RWMutex
	files map[string]*filestore.File
}

// New creates a new in-memory file store.
func New() *Store {
	return &Store{
		files: make(map[string]*filestore.File),
	}
}

// CreateFile stores a copy of file. Duplicate IDs are rejected.
func (s *Store) CreateFile(_ context.Context, file *filestore.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[file.ID]; exists {
		return fmt.Errorf("file %s already exists", file.ID)
	}

	cp := *file
	cp.Content = append([]byte(nil), file.Content...)
	s.files[file.ID] = &cp
	return nil
}

// GetFile returns file metadata (Content is nil).
func (s *Store) GetFile(_ context.Context, fileID string) (*filestore.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[fileID]
	if !exists {
		return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
	}
	return filestore.MetadataOnly(file), nil
}

// GetFileContent returns the raw file bytes.
func (s *Store) GetFileContent(_ context.Context, fileID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[fileID]
	if !exists {
		return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
	}
	return append([]byte(nil), file.Content...), nil
}

// DeleteFile removes a file.
func (s *Store) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[fileID]; !exists {
		return fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
	}
	delete(s.files, fileID)
	return nil
}

// ListFilesPaginated returns the owner's files with cursor-based pagination.
func (s *Store) ListFilesPaginated(_ context.Context, after, before string, limit int, order, ownerID string) ([]*filestore.File, bool, error) {
	s.mu.RLock()
	all := make([]*filestore.File, 0, len(s.files))
	for _, file := range s.files {
		if ownerID != "" && file.OwnerID != ownerID {
			continue
		}
		all = append(all, filestore.MetadataOnly(file))
	}
	s.mu.RUnlock()

	page, hasMore := filestore.Paginate(all, after, before, limit, order)
	return page, hasMore, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
