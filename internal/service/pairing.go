package service

import (
	"context"
	"io"
	"slices"

	"go.uber.org/zap"

	"teef/internal/domain"
	"teef/pkg/utils"
)

func (s *annotationService) ResolvePair(ctx context.Context, filename string, dir domain.Direction) (*domain.Pair, error) {
	return s.Resolve(ctx, domain.PairQuery{Filename: filename, Direction: dir})
}

func (s *annotationService) ResolveIndex(ctx context.Context, index int, dir domain.Direction) (*domain.Pair, error) {
	return s.Resolve(ctx, domain.PairQuery{Index: &index, Direction: dir})
}

func (s *annotationService) Resolve(ctx context.Context, q domain.PairQuery) (*domain.Pair, error) {
	names, err := s.images.List()
	if err != nil {
		return nil, err
	}

	total := len(names)
	if total == 0 {
		return nil, domain.Wrap(domain.ErrInvalidIndex, domain.ErrNotFound, "image set is empty")
	}

	index := 0
	if i := slices.Index(names, q.Filename); q.Filename != "" && i >= 0 {
		index = i
	} else if q.Index != nil {
		if *q.Index < 0 || *q.Index >= total {
			return nil, domain.Errorf(domain.ErrInvalidIndex, "index %d outside [0, %d)", *q.Index, total)
		}
		index = *q.Index
	}

	index = q.Direction.Step(index, total)
	filename := names[index]

	if err := s.ensureMask(filename); err != nil {
		return nil, err
	}

	return &domain.Pair{
		Filename:     filename,
		CurrentIndex: index,
		TotalPairs:   total,
		ImageURL:     "/image/" + s.images.Name() + "/" + filename,
		MaskURL:      "/image/" + s.masks.Name() + "/" + filename,
		PrevFilename: names[domain.DirectionPrev.Step(index, total)],
		NextFilename: names[domain.DirectionNext.Step(index, total)],
	}, nil
}

// ensureMask creates an all-black mask matching the image's dimensions
// unless one is already present.
func (s *annotationService) ensureMask(filename string) error {
	exists, err := s.masks.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	w, h, err := s.imageDimensions(filename)
	if err != nil {
		return err
	}

	created, err := s.masks.WriteNew(filename, func(out io.Writer) error {
		return s.proc.EncodeMask(out, utils.BlankMask(w, h))
	})
	if err != nil {
		s.log.Error("Failed to create blank mask",
			zap.String("file", filename),
			zap.Error(err))
		return err
	}

	if created {
		s.log.Info("Blank mask created",
			zap.String("file", filename),
			zap.Int("width", w),
			zap.Int("height", h))
	}

	return nil
}

func (s *annotationService) imageDimensions(filename string) (int, int, error) {
	f, err := s.images.Open(filename)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	w, h, err := s.proc.Dimensions(f)
	if err != nil {
		return 0, 0, domain.Wrap(domain.ErrDecode, err, "source image "+filename)
	}
	return w, h, nil
}
