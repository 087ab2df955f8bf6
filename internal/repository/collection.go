package repository

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teef/internal/domain"
)

// Collection is a flat directory of files addressed by base name.
// Sub-directories and dot-files are not members.
type Collection struct {
	dir string
	log *zap.Logger
}

func NewCollection(dir string, log *zap.Logger) *Collection {
	return &Collection{dir: dir, log: log}
}

func (c *Collection) Dir() string {
	return c.dir
}

// Name is the collection's directory base name, used in URLs and archives.
func (c *Collection) Name() string {
	return filepath.Base(filepath.Clean(c.dir))
}

// List reads the directory on every call and returns member names sorted
// lexicographically.
func (c *Collection) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.Wrap(domain.ErrNotFound, err, "collection "+c.Name())
		}
		return nil, domain.Wrap(domain.ErrIO, err, "list collection "+c.Name())
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !isMember(entry) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

func isMember(entry fs.DirEntry) bool {
	return !entry.IsDir() && !strings.HasPrefix(entry.Name(), ".")
}

// Path resolves name inside the collection. Anything other than a plain
// base name is rejected so requests cannot escape the directory.
func (c *Collection) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", domain.Errorf(domain.ErrNotFound, "invalid file name %q", name)
	}
	return filepath.Join(c.dir, name), nil
}

func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (c *Collection) Exists(name string) (bool, error) {
	path, err := c.Path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, domain.Wrap(domain.ErrIO, err, "stat "+name)
	}
	return info.Mode().IsRegular(), nil
}

func (c *Collection) Open(name string) (*os.File, error) {
	path, err := c.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.Wrap(domain.ErrNotFound, err, name)
		}
		return nil, domain.Wrap(domain.ErrIO, err, "open "+name)
	}
	return f, nil
}

// WriteAtomic replaces name with the bytes produced by write. Readers see
// either the old file or the complete new one.
func (c *Collection) WriteAtomic(name string, write func(io.Writer) error) error {
	path, err := c.Path(name)
	if err != nil {
		return err
	}

	tmp, err := c.writeTemp(write)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return domain.Wrap(domain.ErrIO, err, "replace "+name)
	}

	c.log.Debug("File written", zap.String("collection", c.Name()), zap.String("file", name))
	return nil
}

// WriteNew creates name only if it does not exist yet. The temp file is
// hard linked into place, so a file that appears concurrently is never
// replaced. created is false when name already existed.
func (c *Collection) WriteNew(name string, write func(io.Writer) error) (created bool, err error) {
	path, err := c.Path(name)
	if err != nil {
		return false, err
	}

	tmp, err := c.writeTemp(write)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, domain.Wrap(domain.ErrIO, err, "create "+name)
	}

	c.log.Debug("File created", zap.String("collection", c.Name()), zap.String("file", name))
	return true, nil
}

func (c *Collection) writeTemp(write func(io.Writer) error) (string, error) {
	tmp := filepath.Join(c.dir, "."+uuid.New().String()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", domain.Wrap(domain.ErrIO, err, "create temp file")
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", domain.Wrap(domain.ErrIO, err, "sync temp file")
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", domain.Wrap(domain.ErrIO, err, "close temp file")
	}

	return tmp, nil
}
