package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaskQuality = 98
	// DefaultMaxImagePixels matches PIL's MAX_IMAGE_PIXELS.
	DefaultMaxImagePixels = 89478485
)

type Config struct {
	Server ServerConfig
	S3     S3Config
	App    AppConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
	Prefix          string
}

type AppConfig struct {
	ImageDir      string
	MaskDir       string
	StaticDir     string
	TemplateDir   string
	MaskQuality   int
	MaxUploadSize int64
	// MaxImagePixels caps width*height of any decoded image.
	MaxImagePixels int64
	ArchivePrefix  string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("S3_ENABLED", false)
	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_BUCKET_NAME", "teef-exports")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "exports/")
	v.SetDefault("APP_IMAGE_DIR", "./images")
	v.SetDefault("APP_MASK_DIR", "./masks")
	v.SetDefault("APP_STATIC_DIR", "./web/static")
	v.SetDefault("APP_TEMPLATE_DIR", "./web/templates")
	v.SetDefault("APP_MASK_QUALITY", DefaultMaskQuality)
	v.SetDefault("APP_MAX_UPLOAD_SIZE", 32*1024*1024) // 32MB, data URIs inflate by a third
	v.SetDefault("APP_MAX_IMAGE_PIXELS", DefaultMaxImagePixels)
	v.SetDefault("APP_ARCHIVE_PREFIX", "teef")
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("S3_ENABLED"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("S3_USE_SSL"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
			Prefix:          v.GetString("S3_PREFIX"),
		},
		App: AppConfig{
			ImageDir:       v.GetString("APP_IMAGE_DIR"),
			MaskDir:        v.GetString("APP_MASK_DIR"),
			StaticDir:      v.GetString("APP_STATIC_DIR"),
			TemplateDir:    v.GetString("APP_TEMPLATE_DIR"),
			MaskQuality:    v.GetInt("APP_MASK_QUALITY"),
			MaxUploadSize:  v.GetInt64("APP_MAX_UPLOAD_SIZE"),
			MaxImagePixels: v.GetInt64("APP_MAX_IMAGE_PIXELS"),
			ArchivePrefix:  v.GetString("APP_ARCHIVE_PREFIX"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := createDirs(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.App.MaskQuality < 1 || c.App.MaskQuality > 100 {
		return fmt.Errorf("APP_MASK_QUALITY must be within [1, 100], got %d", c.App.MaskQuality)
	}
	if c.App.ImageDir == "" || c.App.MaskDir == "" {
		return fmt.Errorf("APP_IMAGE_DIR and APP_MASK_DIR must be set")
	}
	if c.App.MaxUploadSize <= 0 {
		return fmt.Errorf("APP_MAX_UPLOAD_SIZE must be positive, got %d", c.App.MaxUploadSize)
	}
	if c.App.MaxImagePixels <= 0 {
		return fmt.Errorf("APP_MAX_IMAGE_PIXELS must be positive, got %d", c.App.MaxImagePixels)
	}
	if err := c.App.checkCollections(); err != nil {
		return err
	}
	if c.S3.Enabled && c.S3.BucketName == "" {
		return fmt.Errorf("S3_BUCKET_NAME is required when S3_ENABLED is set")
	}
	return nil
}

// createDirs only prepares the mask collection; the image collection is
// owned by the user and its absence is reported per request.
func createDirs(cfg *Config) error {
	if err := os.MkdirAll(cfg.App.MaskDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", cfg.App.MaskDir, err)
	}
	return nil
}

// checkCollections requires distinct directories with distinct base names;
// the base name addresses a collection in URLs and archive entries.
func (a AppConfig) checkCollections() error {
	images, err := filepath.Abs(a.ImageDir)
	if err != nil {
		return fmt.Errorf("resolve APP_IMAGE_DIR: %w", err)
	}
	masks, err := filepath.Abs(a.MaskDir)
	if err != nil {
		return fmt.Errorf("resolve APP_MASK_DIR: %w", err)
	}
	if images == masks {
		return fmt.Errorf("APP_IMAGE_DIR and APP_MASK_DIR must differ, both are %s", images)
	}
	if filepath.Base(images) == filepath.Base(masks) {
		return fmt.Errorf("APP_IMAGE_DIR and APP_MASK_DIR must have different names, both are %q", filepath.Base(images))
	}
	return nil
}
