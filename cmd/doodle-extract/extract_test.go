// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/extractor"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestExtractAll_OrderAndIsolation(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.txt":     "alpha",
		"b.pptx":    "PK",
		"c.md":      "gamma\n",
		"d.unknown": "?",
	})
	paths := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.pptx"),
		filepath.Join(dir, "missing.txt"),
		filepath.Join(dir, "c.md"),
		filepath.Join(dir, "d.unknown"),
	}

	results := extractAll(context.Background(), extractor.New(), paths, 2)
	if len(results) != len(paths) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.path != paths[i] {
			t.Errorf("result %d path = %q, want %q", i, r.path, paths[i])
		}
	}
	if results[0].err != nil || results[0].text != "alpha" {
		t.Errorf("a.txt = %+v", results[0])
	}
	if !errors.Is(results[1].err, extractor.ErrNotImplemented) {
		t.Errorf("b.pptx err = %v", results[1].err)
	}
	if !errors.Is(results[2].err, os.ErrNotExist) {
		t.Errorf("missing err = %v", results[2].err)
	}
	if results[3].err != nil || results[3].text != "gamma\n" {
		t.Errorf("c.md = %+v", results[3])
	}
	if !errors.Is(results[4].err, extractor.ErrUnsupportedFormat) {
		t.Errorf("d.unknown err = %v", results[4].err)
	}
}

func TestReport_Stdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	failed := report(&stdout, &stderr, []result{
		{path: "one.txt", text: "first"},
		{path: "two.txt", err: errors.New("boom")},
		{path: "three.txt", text: "third\n"},
	}, "")

	if failed != 1 {
		t.Errorf("failed = %d", failed)
	}
	want := "==> one.txt <==\nfirst\n\n==> three.txt <==\nthird\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if !strings.Contains(stderr.String(), "two.txt: boom") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestReport_OutputDir(t *testing.T) {
	out := t.TempDir()
	var stdout, stderr bytes.Buffer
	failed := report(&stdout, &stderr, []result{{path: "/some/where/notes.md", text: "hello"}}, out)
	if failed != 0 {
		t.Fatalf("failed = %d: %s", failed, stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(out, "notes.md.txt"))
	if err != nil || string(data) != "hello" {
		t.Errorf("output file = %q, %v", data, err)
	}
}

func TestRootCmd(t *testing.T) {
	dir := writeFiles(t, map[string]string{"ok.txt": "fine", "bad.ppt": "x"})

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		stdout  string
	}{
		{"success", []string{filepath.Join(dir, "ok.txt")}, false, "fine"},
		{"any failure fails the run", []string{filepath.Join(dir, "ok.txt"), filepath.Join(dir, "bad.ppt")}, true, "fine"},
		{"no args", []string{}, true, ""},
		{"bad concurrency", []string{"--concurrency", "0", filepath.Join(dir, "ok.txt")}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			var stdout, stderr bytes.Buffer
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(stdout.String(), tt.stdout) {
				t.Errorf("stdout = %q", stdout.String())
			}
		})
	}
}
