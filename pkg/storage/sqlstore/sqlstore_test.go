// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import "testing"

func TestPlaceholderRewrite(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{Dialect{Name: "sqlite", Placeholder: Question}, "a = ? AND b = ?", "a = ? AND b = ?"},
		{Dialect{Name: "postgres", Placeholder: Dollar}, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{Dialect{Name: "postgres", Placeholder: Dollar}, "no params", "no params"},
	}
	for _, tt := range tests {
		s := &Store{dialect: tt.dialect}
		if got := s.q(tt.in); got != tt.want {
			t.Errorf("%s: q(%q) = %q, want %q", tt.dialect.Name, tt.in, got, tt.want)
		}
	}
}
