package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"brandstudio/internal/domain"
)

func TestStoreAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := store.Store(context.Background(), []byte("png"), "/generated/biz/../biz/a.png")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if want := "http://localhost:8080/static/generated/biz/a.png"; url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "generated", "biz", "a.png")); err != nil {
		t.Fatalf("stat: %v", err)
	}

	data, err := store.Read(context.Background(), "generated/biz/a.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "png" {
		t.Fatalf("data = %q, want png", data)
	}
}

func TestReadMissing(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "")
	_, err := store.Read(context.Background(), "nope.png")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "..", "../etc/passwd", "a/../../b", "."} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("sanitizeKey(%q) = nil error, want rejection", key)
		}
	}
	got, err := sanitizeKey(`.\images\x.png`)
	if err != nil || got != "images/x.png" {
		t.Fatalf("sanitizeKey = %q, %v; want images/x.png", got, err)
	}
}

func TestStoreRespectsCancelledContext(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Store(ctx, []byte("x"), "a.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
