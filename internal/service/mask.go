package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"teef/internal/domain"
	"teef/pkg/utils"
)

// SaveMask stores the data-URI payload as the grayscale mask of filename,
// replacing any previous mask. Nothing is written if decoding fails.
func (s *annotationService) SaveMask(ctx context.Context, payload, filename string) error {
	exists, err := s.images.Exists(filename)
	if err != nil {
		return err
	}
	if !exists {
		return domain.Errorf(domain.ErrNotFound, "no source image %q", filename)
	}

	img, err := s.proc.DecodeDataURI(payload)
	if err != nil {
		return domain.Wrap(domain.ErrDecode, err, "mask payload")
	}

	w, h, err := s.imageDimensions(filename)
	if err != nil {
		return err
	}
	mw, mh := img.Bounds().Dx(), img.Bounds().Dy()
	if !withinScale(mw, w) || !withinScale(mh, h) {
		return domain.Errorf(domain.ErrDecode, "mask %dx%d does not fit image %dx%d", mw, mh, w, h)
	}

	mask := utils.ToGray(img)
	if mask.Bounds().Dx() != w || mask.Bounds().Dy() != h {
		s.log.Warn("Mask size differs from image, rescaling",
			zap.String("file", filename),
			zap.Int("mask_width", mask.Bounds().Dx()),
			zap.Int("mask_height", mask.Bounds().Dy()),
			zap.Int("width", w),
			zap.Int("height", h))
		mask = utils.FitTo(mask, w, h)
	}

	err = s.masks.WriteAtomic(filename, func(out io.Writer) error {
		return s.proc.EncodeMask(out, mask)
	})
	if err != nil {
		s.log.Error("Failed to save mask",
			zap.String("file", filename),
			zap.Error(err))
		return err
	}

	s.log.Info("Mask saved",
		zap.String("file", filename),
		zap.Int("quality", s.proc.Quality()))

	return nil
}

// maxMaskScale bounds how far a submitted mask may differ from its image
// per axis before it is rejected instead of rescaled.
const maxMaskScale = 4

func withinScale(got, want int) bool {
	return got <= want*maxMaskScale && got*maxMaskScale >= want
}
