package repository

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"teef/internal/domain"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestCollection_ListSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.png", "b.png", ".hidden.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	c := NewCollection(dir, zap.NewNop())
	names, err := c.List()
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"a.png", "b.png", "c.png"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("expected %v, got %v", expected, names)
	}
}

func TestCollection_ListSeesExternalChanges(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(dir, zap.NewNop())

	names, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty collection, got %v", names)
	}

	if err := os.WriteFile(filepath.Join(dir, "new.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err = c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "new.png" {
		t.Errorf("expected [new.png], got %v", names)
	}
}

func TestCollection_ListMissingDir(t *testing.T) {
	c := NewCollection(filepath.Join(t.TempDir(), "missing"), zap.NewNop())

	_, err := c.List()
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCollection_Name(t *testing.T) {
	c := NewCollection("./data/masks/", zap.NewNop())
	if c.Name() != "masks" {
		t.Errorf("expected masks, got %q", c.Name())
	}
}

func TestCollection_PathRejectsTraversal(t *testing.T) {
	c := NewCollection(t.TempDir(), zap.NewNop())

	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.png", `a\b.png`, ".secret"} {
		if _, err := c.Path(name); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for %q, got %v", name, err)
		}
	}

	if _, err := c.Path("ok.png"); err != nil {
		t.Errorf("expected plain name to resolve, got %v", err)
	}
}

func TestCollection_WriteAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(dir, zap.NewNop())

	if err := c.WriteAtomic("m.png", writeString("first")); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteAtomic("m.png", writeString("second")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "m.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("expected second, got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestCollection_WriteAtomicFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(dir, zap.NewNop())

	if err := c.WriteAtomic("m.png", writeString("keep")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := c.WriteAtomic("m.png", func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "m.png"))
	if string(data) != "keep" {
		t.Errorf("expected old content to survive, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp file to be removed, found %d entries", len(entries))
	}
}

func TestCollection_WriteNewNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	c := NewCollection(dir, zap.NewNop())

	created, err := c.WriteNew("m.png", writeString("original"))
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected first WriteNew to create the file")
	}

	created, err = c.WriteNew("m.png", writeString("blank"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("expected second WriteNew to report existing file")
	}

	data, _ := os.ReadFile(filepath.Join(dir, "m.png"))
	if string(data) != "original" {
		t.Errorf("expected original content, got %q", data)
	}

	ok, err := c.Exists("m.png")
	if err != nil || !ok {
		t.Errorf("expected m.png to exist, got %v %v", ok, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestCollection_OpenMissing(t *testing.T) {
	c := NewCollection(t.TempDir(), zap.NewNop())

	if _, err := c.Open("nope.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
