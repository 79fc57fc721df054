package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("HEALTHOPS_REDIS_HOST", "cache.internal")

	got, err := ExpandEnv("redis://${HEALTHOPS_REDIS_HOST}:6379 costs $$5")
	if err != nil {
		t.Fatalf("ExpandEnv: %v", err)
	}
	if got != "redis://cache.internal:6379 costs $5" {
		t.Errorf("ExpandEnv = %q", got)
	}
}

func TestExpandEnv_MissingListsAll(t *testing.T) {
	_, err := ExpandEnv("${HEALTHOPS_NOPE_B} ${HEALTHOPS_NOPE_A} ${HEALTHOPS_NOPE_B}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("err = %v, want ErrMissingEnv", err)
	}
	if !strings.HasSuffix(err.Error(), "HEALTHOPS_NOPE_A, HEALTHOPS_NOPE_B") {
		t.Errorf("err = %q", err)
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:file:redis_password", "file", "redis_password", true},
		{"secretref:env:PG:PASS", "env", "PG:PASS", true},
		{"secretref::x", "", "", false},
		{"secretref:file:", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		p, r, ok := ParseRef(tt.in)
		if p != tt.provider || r != tt.ref || ok != tt.ok {
			t.Errorf("ParseRef(%q) = %q, %q, %v", tt.in, p, r, ok)
		}
	}
}

func writeSecret(t *testing.T, dir, name, value string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "redis_password", "s3cret\n")
	writeSecret(t, dir, "empty", "")
	t.Setenv("HEALTHOPS_PG_PASSWORD", "pgpass")

	r := NewResolver(EnvProvider{}, FileProvider{Dir: dir})
	ctx := context.Background()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "localhost:6379", "localhost:6379", nil},
		{"whole file ref", "secretref:file:redis_password", "s3cret", nil},
		{"inline env ref", "postgres://app:secretref:env:HEALTHOPS_PG_PASSWORD@db/papers", "postgres://app:pgpass@db/papers", nil},
		{"unknown provider", "secretref:vault:x", "", ErrUnknownProvider},
		{"empty secret", "secretref:file:empty", "", ErrEmptySecret},
		{"traversal", "secretref:file:..", "", ErrInvalidRef},
		{"missing env", "${HEALTHOPS_UNSET_VAR}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveAll(t *testing.T) {
	t.Setenv("HEALTHOPS_ADDR", "redis:6379")
	addr, password, empty := "${HEALTHOPS_ADDR}", "secretref:env:HEALTHOPS_ADDR", ""

	if err := NewResolver().ResolveAll(context.Background(), &addr, &password, &empty, nil); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if addr != "redis:6379" || password != "redis:6379" || empty != "" {
		t.Errorf("resolved = %q %q %q", addr, password, empty)
	}
}

func TestFileProvider_DefaultDir(t *testing.T) {
	_, err := FileProvider{}.Resolve(context.Background(), "healthops-test-missing")
	if err == nil || !strings.Contains(err.Error(), "healthops-test-missing") {
		t.Errorf("err = %v", err)
	}
}
