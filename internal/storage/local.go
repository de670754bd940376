package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"badgehub/internal/models"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// LocalStore keeps badge images on the local filesystem and serves them
// from a static URL prefix. Used in development when no Cloudinary
// credentials are configured; SVG thumbnails are requested through a
// width query parameter handled by whatever serves the files.
type LocalStore struct {
	logger      *zap.Logger
	dir         string
	baseURL     string
	maxFileSize int64
	thumbWidth  int
}

// NewLocalStore creates a filesystem-backed image store rooted at dir.
func NewLocalStore(dir, baseURL string, maxFileSize int64, thumbWidth int, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &LocalStore{
		logger:      logger,
		dir:         dir,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxFileSize: maxFileSize,
		thumbWidth:  thumbWidth,
	}, nil
}

// Upload validates and writes a badge image under a fresh name.
func (s *LocalStore) Upload(ctx context.Context, file *multipart.FileHeader) (*StoredImage, error) {
	imageType, err := sniffImageType(file, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnableToOpenFile, err)
	}
	defer src.Close()

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate image name: %w", err)
	}

	ref := fmt.Sprintf("%s.%s", id.String(), imageType)
	dst, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.logger.Info("badge image stored locally",
		zap.String("ref", ref),
		zap.String("image_type", imageType),
	)

	return &StoredImage{
		Ref:  ref,
		Type: imageType,
		URL:  s.baseURL + "/" + ref,
	}, nil
}

// ResolveURL builds the display URL for a stored image.
func (s *LocalStore) ResolveURL(ref, imageType string) (string, error) {
	switch imageType {
	case models.ImageTypePNG:
		return s.baseURL + "/" + url.PathEscape(ref), nil
	case models.ImageTypeSVG:
		return fmt.Sprintf("%s/%s?width=%d", s.baseURL, url.PathEscape(ref), s.thumbWidth), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, imageType)
	}
}

// Delete removes a stored image.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(ref))); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}
