// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem_test

import (
	"context"
	"errors"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
	"github.com/doodlechat/doodle-gw/pkg/filestore/filestoretest"
	"github.com/doodlechat/doodle-gw/pkg/filestore/filesystem"
)

func TestFilesystemConformance(t *testing.T) {
	filestoretest.RunConformanceTests(t, func(t *testing.T) filestore.FileStore {
		store, err := filesystem.New(t.TempDir())
		if err != nil {
			t.Fatalf("filesystem.New: %v", err)
		}
		return store
	})
}

func TestFilesystem_RejectsEscapingIDs(t *testing.T) {
	store, err := filesystem.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, id := range []string{"../etc", "a/b", `a\b`, "..", ""} {
		if _, err := store.GetFile(ctx, id); !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("GetFile(%q) = %v, want ErrFileNotFound", id, err)
		}
		if err := store.CreateFile(ctx, &filestore.File{ID: id, Content: []byte("x")}); err == nil {
			t.Errorf("CreateFile(%q) should fail", id)
		}
	}
}

func TestFilesystem_RequiresBaseDir(t *testing.T) {
	if _, err := filesystem.New(""); err == nil {
		t.Error("expected error for empty base_dir")
	}
}
