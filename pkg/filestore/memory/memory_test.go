// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
	"github.com/doodlechat/doodle-gw/pkg/filestore/filestoretest"
	"github.com/doodlechat/doodle-gw/pkg/filestore/memory"
)

func TestMemoryConformance(t *testing.T) {
	filestoretest.RunConformanceTests(t, func(t *testing.T) filestore.FileStore {
		return memory.New()
	})
}

func TestMemory_CallerMutationDoesNotLeak(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	content := []byte("hello")
	if err := store.CreateFile(ctx, &filestore.File{ID: "file_1", Content: content, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	content[0] = 'J'

	got, err := store.GetFileContent(ctx, "file_1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("stored content changed to %q", got)
	}
}
