// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/provider"
)

// ErrFileNotFound is returned when a file does not exist.
var ErrFileNotFound = errors.New("file not found")

// Providers is the registry of file store backends. Blank-import a backend
// package to register it:
//
//	import _ "github.com/doodlechat/doodle-gw/pkg/filestore/memory"
//	import _ "github.com/doodlechat/doodle-gw/pkg/filestore/filesystem"
//	import _ "github.com/doodlechat/doodle-gw/pkg/filestore/s3"
var Providers = provider.NewRegistry[FileStore]("file_store")

// File statuses.
const (
	StatusProcessed = "processed"
	StatusError     = "error"
)

// File is an uploaded document with its extraction outcome.
type File struct {
	ID            string
	OwnerID       string
	Filename      string
	MimeType      string
	Format        string
	Bytes         int64
	Content       []byte // populated for CreateFile input; nil for GetFile output
	Status        string
	StatusDetails string // extraction error message when Status is StatusError
	CreatedAt     time.Time
}

// FileStore defines the interface for pluggable file storage backends.
type FileStore interface {
	CreateFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, fileID string) (*File, error)
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
	// ListFilesPaginated lists files owned by ownerID ("" lists all).
	ListFilesPaginated(ctx context.Context, after, before string, limit int, order, ownerID string) ([]*File, bool, error)
	Close(ctx context.Context) error
}

// Paginate sorts files by CreatedAt ("desc" for newest first) and applies
// cursor pagination. after and before are file IDs; limit is clamped to
// 1..100 with a default of 50.
func Paginate(files []*File, after, before string, limit int, order string) ([]*File, bool) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Ties on CreatedAt are broken by ID so cursors stay stable.
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if order == "desc" {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	start := 0
	if after != "" {
		start = len(files)
		for i, f := range files {
			if f.ID == after {
				start = i + 1
				break
			}
		}
	}

	var page []*File
	for _, f := range files[start:] {
		if before != "" && f.ID == before {
			break
		}
		if len(page) == limit {
			return page, true
		}
		page = append(page, f)
	}
	return page, false
}

// MetadataOnly returns a copy of f without content.
func MetadataOnly(f *File) *File {
	cp := *f
	cp.Content = nil
	return &cp
}
