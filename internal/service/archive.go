package service

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"

	"go.uber.org/zap"

	"teef/internal/domain"
	"teef/internal/repository"
)

const archiveTimeLayout = "20060102150405"

// ExportArchive bundles the mask and image collections into an in-memory
// gzip tarball. Entries are "<collection>/<file>"; directories get no entry.
func (s *annotationService) ExportArchive(ctx context.Context) (*domain.Archive, error) {
	createdAt := s.now()
	name := s.cfg.App.ArchivePrefix + "-" + createdAt.Format(archiveTimeLayout) + ".tar.gz"

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := 0
	for _, c := range []*repository.Collection{s.masks, s.images} {
		n, err := addCollection(ctx, tw, c)
		if err != nil {
			s.log.Error("Failed to archive collection",
				zap.String("collection", c.Name()),
				zap.Error(err))
			return nil, err
		}
		files += n
	}

	if err := tw.Close(); err != nil {
		return nil, domain.Wrap(domain.ErrIO, err, "finish tar")
	}
	if err := gz.Close(); err != nil {
		return nil, domain.Wrap(domain.ErrIO, err, "finish gzip")
	}

	archive := &domain.Archive{
		Name:      name,
		Data:      buf.Bytes(),
		CreatedAt: createdAt,
	}

	s.log.Info("Archive exported",
		zap.String("name", name),
		zap.Int("files", files),
		zap.Int("size", len(archive.Data)))

	s.backupArchive(ctx, archive)

	return archive, nil
}

func addCollection(ctx context.Context, tw *tar.Writer, c *repository.Collection) (int, error) {
	names, err := c.List()
	if err != nil {
		return 0, domain.Wrap(domain.ErrIO, err, "read collection "+c.Name())
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := addFile(tw, c, name); err != nil {
			return 0, err
		}
	}

	return len(names), nil
}

func addFile(tw *tar.Writer, c *repository.Collection, name string) error {
	f, err := c.Open(name)
	if err != nil {
		return domain.Wrap(domain.ErrIO, err, "archive "+name)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Wrap(domain.ErrIO, err, "stat "+name)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return domain.Wrap(domain.ErrIO, err, "tar header "+name)
	}
	hdr.Name = c.Name() + "/" + name

	if err := tw.WriteHeader(hdr); err != nil {
		return domain.Wrap(domain.ErrIO, err, "write header "+name)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return domain.Wrap(domain.ErrIO, err, "write "+name)
	}
	return nil
}

// backupArchive pushes a copy to the archive store. Failures are logged
// only; the local download does not depend on it.
func (s *annotationService) backupArchive(ctx context.Context, archive *domain.Archive) {
	if s.store == nil {
		return
	}

	key := s.cfg.S3.Prefix + archive.Name
	err := s.store.UploadFile(ctx, key, bytes.NewReader(archive.Data), int64(len(archive.Data)), "application/gzip")
	if err != nil {
		s.log.Warn("Archive backup failed",
			zap.String("key", key),
			zap.Error(err))
		return
	}

	s.log.Info("Archive backed up", zap.String("key", key))
}

func (s *annotationService) ListExports(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "archive store is disabled")
	}

	keys, err := s.store.ListFiles(ctx, s.cfg.S3.Prefix)
	if err != nil {
		return nil, domain.Wrap(domain.ErrIO, err, "list exports")
	}
	return keys, nil
}
