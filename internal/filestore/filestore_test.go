package filestore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tmendes/orderimport/internal/importer"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ref, err := s.Save(strings.NewReader("hello order file"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ref == "" || strings.ContainsAny(ref, "/\\") {
		t.Fatalf("Save() ref = %q, want opaque name", ref)
	}

	rc, err := s.Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(body) != "hello order file" {
		t.Errorf("body = %q", body)
	}
}

func TestSaveIssuesDistinctRefs(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	a, _ := s.Save(strings.NewReader("a"))
	b, _ := s.Save(strings.NewReader("b"))
	if a == b {
		t.Errorf("Save() issued duplicate ref %q", a)
	}
}

func TestOpenMissingRef(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Open(context.Background(), "nope.txt"); !errors.Is(err, importer.ErrFileNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{"", "../etc/passwd", "a/b.txt"} {
		if _, err := s.Open(context.Background(), ref); !errors.Is(err, importer.ErrFileNotFound) {
			t.Errorf("Open(%q) error = %v, want ErrFileNotFound", ref, err)
		}
	}
}
