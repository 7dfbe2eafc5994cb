package storage

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Load and Delete for unknown keys.
var ErrObjectNotFound = errors.New("stored object not found")

// ImageStore archives uploaded images under opaque keys.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces a client supplied name to a safe base name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// newKey prefixes the sanitised name with a random id so uploads never collide.
func newKey(name string) string {
	return uuid.NewString() + "_" + SanitizeFilename(name)
}

// validKey rejects keys that could escape the store's namespace.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}
