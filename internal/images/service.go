// Package images renders product thumbnails from remote catalog images.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/johnrirwin/devicedesk/internal/cache"
	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/logging"
)

var (
	// ErrNoImage is returned when the product has no image URL
	ErrNoImage = errors.New("product has no image")
	// ErrUnsupportedImage is returned when the downloaded bytes are not a decodable image
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge is returned when the source image exceeds the download cap
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// Downloader fetches a remote image body
type Downloader interface {
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Config bounds generated thumbnails
type Config struct {
	Width    int
	Height   int
	MaxBytes int64
	Quality  int
	CacheTTL time.Duration
	Timeout  time.Duration
}

// ConfigFrom converts the thumbnail section of the service config
func ConfigFrom(cfg config.ThumbnailConfig, cacheTTL time.Duration) Config {
	return Config{
		Width:    cfg.Width,
		Height:   cfg.Height,
		MaxBytes: cfg.MaxBytes,
		CacheTTL: cacheTTL,
	}
}

// Service downloads product images and renders JPEG thumbnails, caching the result
type Service struct {
	downloader Downloader
	cache      cache.Cache
	cfg        Config
	logger     *logging.Logger
}

// NewService creates a thumbnail service; c may be nil to disable caching
func NewService(downloader Downloader, c cache.Cache, cfg Config, logger *logging.Logger) *Service {
	if cfg.Width <= 0 {
		cfg.Width = 320
	}
	if cfg.Height <= 0 {
		cfg.Height = 320
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 75
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Service{
		downloader: downloader,
		cache:      c,
		cfg:        cfg,
		logger:     logger,
	}
}

// Thumbnail returns a JPEG no larger than the configured bounds, keeping aspect ratio.
// Images already within bounds are re-encoded at their own size.
func (s *Service) Thumbnail(ctx context.Context, imageURL string) ([]byte, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, ErrNoImage
	}

	key := s.cacheKey(imageURL)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			if text, ok := raw.(string); ok {
				if data, err := base64.StdEncoding.DecodeString(text); err == nil {
					return data, nil
				}
			}
		}
	}

	src, err := s.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	out, err := s.render(src)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		encoded := base64.StdEncoding.EncodeToString(out)
		if s.cfg.CacheTTL > 0 {
			s.cache.SetWithTTL(key, encoded, s.cfg.CacheTTL)
		} else {
			s.cache.Set(key, encoded)
		}
	}

	s.logger.Debug("Rendered thumbnail", logging.WithFields(map[string]interface{}{
		"url":    imageURL,
		"source": len(src),
		"bytes":  len(out),
	}))
	return out, nil
}

func (s *Service) download(ctx context.Context, imageURL string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := s.downloader.Get(fetchCtx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

func (s *Service) render(src []byte) ([]byte, error) {
	if _, ok := detectAllowedImageContentType(src); !ok {
		return nil, ErrUnsupportedImage
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	thumb := imaging.Fit(img, s.cfg.Width, s.cfg.Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(s.cfg.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) cacheKey(imageURL string) string {
	return fmt.Sprintf("thumb:%dx%d|%s", s.cfg.Width, s.cfg.Height, imageURL)
}
