package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teef/internal/config"
	"teef/internal/domain"
	"teef/internal/repository"
	"teef/internal/service"
)

type Handler struct {
	service service.AnnotationService
	cfg     *config.Config
	log     *zap.Logger
}

func NewHandler(service service.AnnotationService, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		log:     log,
	}
}

// fail maps domain errors to a status code and writes a JSON error body.
// The body carries msg and the error kind only; the wrapped cause, which may
// hold filesystem paths, goes to the log.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status, kind := http.StatusInternalServerError, "internal error"
	switch {
	// IO failures may wrap ErrNotFound (a vanished collection during export)
	// and still answer 500.
	case errors.Is(err, domain.ErrIO):
		status = http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrInvalidIndex):
		status, kind = http.StatusBadRequest, domain.ErrInvalidIndex.Error()
	case errors.Is(err, domain.ErrDecode):
		status, kind = http.StatusBadRequest, domain.ErrDecode.Error()
	}

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, fields...)
	} else {
		h.log.Warn(msg, fields...)
	}

	c.JSON(status, gin.H{"error": msg + ": " + kind})
}

func (h *Handler) GetUI(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"initialImg": c.Query("img"),
	})
}

func (h *Handler) GetImagePair(c *gin.Context) {
	direction, err := domain.ParseDirection(c.Query("direction"))
	if err != nil {
		h.fail(c, "Invalid direction", err)
		return
	}

	q := domain.PairQuery{
		Filename:  c.Query("img"),
		Direction: direction,
	}
	if raw := c.Query("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, "Invalid index", domain.Errorf(domain.ErrInvalidIndex, "index %q is not a number", raw))
			return
		}
		q.Index = &index
	}

	pair, err := h.service.Resolve(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Failed to resolve image pair", err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *Handler) ServeImage(c *gin.Context) {
	var coll *repository.Collection
	switch c.Param("collection") {
	case h.service.Images().Name():
		coll = h.service.Images()
	case h.service.Masks().Name():
		coll = h.service.Masks()
		c.Header("Cache-Control", "no-store")
	default:
		h.fail(c, "Unknown collection", domain.Errorf(domain.ErrNotFound, "collection %q", c.Param("collection")))
		return
	}

	filename := c.Param("filename")
	exists, err := coll.Exists(filename)
	if err == nil && !exists {
		err = domain.Errorf(domain.ErrNotFound, "file %q", filename)
	}
	if err != nil {
		h.fail(c, "Failed to serve image", err)
		return
	}

	path, _ := coll.Path(filename)
	c.File(path)
}

func (h *Handler) SaveMask(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.App.MaxUploadSize)

	var req domain.SaveMaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.log.Warn("Mask payload too large", zap.Int64("limit", maxErr.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Mask payload too large"})
			return
		}
		h.fail(c, "Invalid save request", domain.Wrap(domain.ErrDecode, err, "request body"))
		return
	}

	if err := h.service.SaveMask(c.Request.Context(), req.Image, req.MaskFilename); err != nil {
		h.fail(c, "Failed to save mask", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mask saved successfully"})
}

func (h *Handler) DownloadAll(c *gin.Context) {
	archive, err := h.service.ExportArchive(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to export archive", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+archive.Name+`"`)
	c.Data(http.StatusOK, "application/gzip", archive.Data)
}

func (h *Handler) ListImages(c *gin.Context) {
	images, err := h.service.ListImages(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list images", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *Handler) ListExports(c *gin.Context) {
	exports, err := h.service.ListExports(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list exports", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": exports})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
