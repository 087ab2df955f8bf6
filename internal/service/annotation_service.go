package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"teef/internal/config"
	"teef/internal/domain"
	"teef/internal/repository"
	"teef/pkg/utils"
)

type AnnotationService interface {
	ListImages(ctx context.Context) ([]string, error)
	Resolve(ctx context.Context, q domain.PairQuery) (*domain.Pair, error)
	ResolvePair(ctx context.Context, filename string, dir domain.Direction) (*domain.Pair, error)
	ResolveIndex(ctx context.Context, index int, dir domain.Direction) (*domain.Pair, error)
	SaveMask(ctx context.Context, payload, filename string) error
	ExportArchive(ctx context.Context) (*domain.Archive, error)
	ListExports(ctx context.Context) ([]string, error)
	Images() *repository.Collection
	Masks() *repository.Collection
}

type annotationService struct {
	images *repository.Collection
	masks  *repository.Collection
	store  repository.ArchiveStore
	cfg    *config.Config
	log    *zap.Logger
	proc   *utils.ImageProcessor
	now    func() time.Time
}

// NewAnnotationService wires the two collections named in cfg. store may be
// nil, in which case exports stay local.
func NewAnnotationService(store repository.ArchiveStore, cfg *config.Config, log *zap.Logger) AnnotationService {
	return &annotationService{
		images: repository.NewCollection(cfg.App.ImageDir, log),
		masks:  repository.NewCollection(cfg.App.MaskDir, log),
		store:  store,
		cfg:    cfg,
		log:    log,
		proc:   utils.NewImageProcessor(log, cfg.App.MaskQuality, cfg.App.MaxImagePixels),
		now:    time.Now,
	}
}

func (s *annotationService) Images() *repository.Collection {
	return s.images
}

func (s *annotationService) Masks() *repository.Collection {
	return s.masks
}

func (s *annotationService) ListImages(ctx context.Context) ([]string, error) {
	return s.images.List()
}
