package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider looks up a secret by reference.
//
// Implementations must be safe for concurrent use and must never log the
// values they return.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves a reference as an environment variable name.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// DefaultSecretsDir is where container runtimes mount secrets.
const DefaultSecretsDir = "/run/secrets"

// FileProvider resolves a reference as a file name inside Dir. Trailing
// newlines are trimmed.
type FileProvider struct {
	Dir string
}

func (FileProvider) Name() string { return "file" }

func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return "", fmt.Errorf("%w: file reference %q must be a bare file name", ErrInvalidRef, ref)
	}
	dir := p.Dir
	if dir == "" {
		dir = DefaultSecretsDir
	}
	b, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
