// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("FILE_STORE_TYPE", "")
	t.Setenv("TRANSCRIPT_STORE_TYPE", "")

	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name         string
		path         string
		wantDefaults bool
		wantErr      bool
		wantPort     int
	}{
		{"missing file falls back", filepath.Join(dir, "absent.yaml"), true, false, 8080},
		{"valid file", write("ok.yaml", "server:\n  port: 9090\n"), false, false, 9090},
		{"out of range temperature", write("hot.yaml", "chat:\n  temperature: 5\n"), false, true, 0},
		{"malformed yaml", write("bad.yaml", "server: [port\n"), false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, usedDefaults, err := loadConfig(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig() error = %v", err)
			}
			if usedDefaults != tt.wantDefaults {
				t.Errorf("usedDefaults = %v, want %v", usedDefaults, tt.wantDefaults)
			}
			if cfg.Server.Port != tt.wantPort {
				t.Errorf("port = %d, want %d", cfg.Server.Port, tt.wantPort)
			}
		})
	}
}
