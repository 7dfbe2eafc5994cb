package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hand sign.png", "hand_sign.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo.JPG`, "photo.JPG"},
		{".hidden.png", "hidden.png"},
		{"signé (1).jpg", "sign_1.jpg"},
		{"", "upload"},
		{"...", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	key, err := store.Save(ctx, "../a b.png", pngData)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.HasSuffix(key, "_a_b.png") || strings.Contains(key, "/") {
		t.Errorf("Unexpected key %q", key)
	}

	other, _ := store.Save(ctx, "../a b.png", pngData)
	if other == key {
		t.Error("Expected unique keys for identical names")
	}

	data, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !bytes.Equal(data, pngData) {
		t.Error("Expected stored bytes back")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := store.Load(ctx, key); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Expected ErrObjectNotFound after delete, got %v", err)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	for _, key := range []string{"../secret", "a/b", "", `..\x`} {
		if _, err := store.Load(context.Background(), key); !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("Expected ErrObjectNotFound for %q, got %v", key, err)
		}
	}
}
