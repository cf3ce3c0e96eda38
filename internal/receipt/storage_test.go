package receipt

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestStoreSaveRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	payload := []byte("fake png bytes")
	stored, err := store.Save(Upload{
		Filename:    "lunch receipt.png",
		ContentType: "image/png",
		Data:        bytes.NewReader(payload),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	f, err := store.Open(stored.Name)
	if err != nil {
		t.Fatalf("open stored file: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored bytes differ from upload")
	}
	if !strings.HasSuffix(stored.Name, ".png") {
		t.Fatalf("extension not preserved: %s", stored.Name)
	}
}

func TestStoreRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	cases := []Upload{
		{Filename: "notes.txt", ContentType: "text/plain", Data: strings.NewReader("hi")},
		{Filename: "fake.png", ContentType: "text/plain", Data: strings.NewReader("hi")}, // mislabeled extension
		{Filename: "doc.pdf", ContentType: "application/pdf", Data: strings.NewReader("hi")},
		{Filename: "noext", ContentType: "", Data: strings.NewReader("hi")},
	}
	for _, up := range cases {
		if _, err := store.Save(up); !errors.Is(err, ErrNotAnImage) {
			t.Fatalf("%s (%s): expected ErrNotAnImage, got %v", up.Filename, up.ContentType, err)
		}
	}

	// Nothing persisted on rejection.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty receipts dir, found %d entries", len(entries))
	}
}

func TestStoreExtensionFallback(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// No declared content type; the .jpg extension is enough.
	if _, err := store.Save(Upload{Filename: "photo.jpg", Data: strings.NewReader("x")}); err != nil {
		t.Fatalf("save with extension fallback: %v", err)
	}
}

func TestStoreNoOverwriteOnDuplicateNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first, err := store.Save(Upload{Filename: "receipt.png", ContentType: "image/png", Data: strings.NewReader("one")})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := store.Save(Upload{Filename: "receipt.png", ContentType: "image/png", Data: strings.NewReader("two")})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first.Path == second.Path {
		t.Fatalf("expected distinct paths, both were %s", first.Path)
	}

	for stored, want := range map[StoredFile]string{first: "one", second: "two"} {
		data, err := os.ReadFile(stored.Path)
		if err != nil {
			t.Fatalf("read %s: %v", stored.Path, err)
		}
		if string(data) != want {
			t.Fatalf("%s: expected %q, got %q", stored.Path, want, data)
		}
	}
}

func TestUniqueNameSanitizes(t *testing.T) {
	name := uniqueName("../../etc/pass wd!!.PNG")
	if strings.ContainsAny(name, "/\\ !") {
		t.Fatalf("unsafe characters survived: %q", name)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected lowercased extension: %q", name)
	}
}
