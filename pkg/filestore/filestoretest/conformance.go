// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestoretest provides a shared conformance suite for
// filestore.FileStore implementations. Each backend calls
// RunConformanceTests from its own _test.go file.
package filestoretest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func textFile(id, owner string, i int) *filestore.File {
	return &filestore.File{
		ID:        id,
		OwnerID:   owner,
		Filename:  fmt.Sprintf("f%d.txt", i),
		MimeType:  "text/plain",
		Format:    "text",
		Bytes:     1,
		Content:   []byte("x"),
		Status:    filestore.StatusProcessed,
		CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
	}
}

func ids(files []*filestore.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	return out
}

// RunConformanceTests exercises a FileStore against the shared contract.
// newStore is called once per sub-test and must return an empty store.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) filestore.FileStore) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := &filestore.File{
			ID:            "file_abc123",
			OwnerID:       "user-1",
			Filename:      "broken.pdf",
			MimeType:      "application/pdf",
			Format:        "pdf",
			Bytes:         8,
			Content:       []byte("%PDF-1.4"),
			Status:        filestore.StatusError,
			StatusDetails: "Failed to read pdf file: malformed PDF",
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFile(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if got.ID != f.ID || got.OwnerID != f.OwnerID || got.Filename != f.Filename ||
			got.MimeType != f.MimeType || got.Format != f.Format || got.Bytes != f.Bytes ||
			got.Status != f.Status || got.StatusDetails != f.StatusDetails {
			t.Errorf("GetFile returned unexpected metadata: %+v", got)
		}
		if !got.CreatedAt.Equal(f.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, f.CreatedAt)
		}
		if got.Content != nil {
			t.Errorf("expected nil Content from GetFile, got %d bytes", len(got.Content))
		}
	})

	t.Run("GetContent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("PK\x03\x04 binary \x00\xff payload")
		f := textFile("file_content1", "user-1", 0)
		f.Filename = "budget.xlsx"
		f.Content = content
		f.Bytes = int64(len(content))
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFileContent(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFileContent: %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := textFile("file_del1", "user-1", 0)
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
		if err := store.DeleteFile(ctx, f.ID); err != nil {
			t.Fatalf("DeleteFile: %v", err)
		}
		if _, err := store.GetFile(ctx, f.ID); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound after delete, got: %v", err)
		}
		if _, err := store.GetFileContent(ctx, f.ID); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected content gone after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if _, err := store.GetFile(ctx, "file_nonexistent"); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("GetFile expected ErrFileNotFound, got: %v", err)
		}
		if _, err := store.GetFileContent(ctx, "file_nonexistent"); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("GetFileContent expected ErrFileNotFound, got: %v", err)
		}
		if err := store.DeleteFile(ctx, "file_nonexistent"); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("DeleteFile expected ErrFileNotFound, got: %v", err)
		}
	})

	t.Run("ListPaginated", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			if err := store.CreateFile(ctx, textFile(fmt.Sprintf("file_list%c", 'a'+i), "user-1", i)); err != nil {
				t.Fatalf("CreateFile[%d]: %v", i, err)
			}
		}

		files, hasMore, err := store.ListFilesPaginated(ctx, "", "", 10, "asc", "")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if got := fmt.Sprint(ids(files)); got != "[file_lista file_listb file_listc file_listd file_liste]" {
			t.Errorf("asc order = %s", got)
		}
		if hasMore {
			t.Error("expected hasMore=false")
		}

		files, hasMore, err = store.ListFilesPaginated(ctx, "", "", 3, "asc", "")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if len(files) != 3 || !hasMore {
			t.Errorf("limit=3: got %d files, hasMore=%v", len(files), hasMore)
		}

		files, hasMore, err = store.ListFilesPaginated(ctx, "file_listc", "", 10, "asc", "")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if got := fmt.Sprint(ids(files)); got != "[file_listd file_liste]" || hasMore {
			t.Errorf("after cursor = %s hasMore=%v", got, hasMore)
		}

		files, _, err = store.ListFilesPaginated(ctx, "", "file_listc", 10, "desc", "")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if got := fmt.Sprint(ids(files)); got != "[file_liste file_listd]" {
			t.Errorf("desc before cursor = %s", got)
		}
	})

	t.Run("ListFilterByOwner", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		owners := []string{"alice", "bob", "alice"}
		for i, owner := range owners {
			if err := store.CreateFile(ctx, textFile(fmt.Sprintf("file_owner%c", 'a'+i), owner, i)); err != nil {
				t.Fatalf("CreateFile[%d]: %v", i, err)
			}
		}

		files, _, err := store.ListFilesPaginated(ctx, "", "", 10, "asc", "alice")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("expected 2 files for alice, got %d", len(files))
		}
		for _, f := range files {
			if f.OwnerID != "alice" {
				t.Errorf("leaked file %s owned by %q", f.ID, f.OwnerID)
			}
			if f.Content != nil {
				t.Errorf("listing should not carry content for %s", f.ID)
			}
		}

		files, _, err = store.ListFilesPaginated(ctx, "", "", 10, "asc", "carol")
		if err != nil {
			t.Fatalf("ListFilesPaginated: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected no files for carol, got %d", len(files))
		}
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := textFile("file_dup1", "user-1", 0)
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("first CreateFile: %v", err)
		}
		// Backends may reject or overwrite; the file must remain readable.
		_ = store.CreateFile(ctx, f)
		if _, err := store.GetFile(ctx, f.ID); err != nil {
			t.Errorf("GetFile after duplicate create: %v", err)
		}
	})
}
