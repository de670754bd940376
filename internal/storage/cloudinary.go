package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"badgehub/internal/config"
	"badgehub/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// CloudinaryStore stores badge images on Cloudinary. The stored ref is
// the Cloudinary public ID; thumbnail URLs are built with an on-the-fly
// width transformation.
type CloudinaryStore struct {
	client        *cloudinary.Cloudinary
	logger        *zap.Logger
	folder        string
	maxFileSize   int64
	thumbWidth    int
	uploadTimeout time.Duration
	deleteTimeout time.Duration
	maxRetries    int
}

// NewCloudinaryStore creates a Cloudinary-backed image store.
func NewCloudinaryStore(cfg *config.CloudinaryConfig, badges *config.BadgeConfig, logger *zap.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are missing")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client:        client,
		logger:        logger,
		folder:        cfg.UploadFolder,
		maxFileSize:   cfg.MaxFileSize,
		thumbWidth:    badges.ThumbWidth,
		uploadTimeout: 30 * time.Second,
		deleteTimeout: 10 * time.Second,
		maxRetries:    3,
	}, nil
}

// Upload validates and stores a badge image, retrying transient upload
// failures with exponential backoff.
func (s *CloudinaryStore) Upload(ctx context.Context, file *multipart.FileHeader) (*StoredImage, error) {
	imageType, err := sniffImageType(file, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnableToOpenFile, err)
	}
	defer src.Close()

	uploadParams := uploader.UploadParams{
		Folder:         s.folder,
		UseFilename:    ptrBool(true),
		UniqueFilename: ptrBool(true),
		ResourceType:   "image",
	}

	var result *uploader.UploadResult
	operation := rewindingOperation(src, func() error {
		var opErr error
		result, opErr = s.client.Upload.Upload(ctx, src, uploadParams)
		return opErr
	})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.uploadTimeout / 2
	err = backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(b, uint64(s.maxRetries)),
		func(err error, d time.Duration) {
			s.logger.Warn("upload attempt failed",
				zap.String("filename", file.Filename),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, s.maxRetries, err)
	}

	s.logger.Info("badge image uploaded",
		zap.String("filename", file.Filename),
		zap.String("public_id", result.PublicID),
		zap.String("image_type", imageType),
	)

	return &StoredImage{
		Ref:  result.PublicID,
		Type: imageType,
		URL:  result.SecureURL,
	}, nil
}

// ResolveURL builds the display URL for a stored image. PNGs are served
// as stored; SVGs are flattened to a PNG thumbnail at the configured
// width.
func (s *CloudinaryStore) ResolveURL(ref, imageType string) (string, error) {
	img, err := s.client.Image(ref)
	if err != nil {
		return "", fmt.Errorf("failed to build image url: %w", err)
	}

	switch imageType {
	case models.ImageTypePNG:
		// As stored.
	case models.ImageTypeSVG:
		img.Transformation = fmt.Sprintf("w_%d,f_png", s.thumbWidth)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, imageType)
	}

	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to build image url: %w", err)
	}

	return url, nil
}

// Delete removes a stored image by its public ID.
func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: ref,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	s.logger.Info("badge image deleted", zap.String("public_id", ref))
	return nil
}

// rewindingOperation makes op safe to retry with a file reader: every
// attempt must send the whole file, and a failed attempt leaves the
// reader partially consumed.
func rewindingOperation(src io.Seeker, op backoff.Operation) backoff.Operation {
	return func() error {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to rewind upload: %w", err))
		}
		return op()
	}
}

func ptrBool(b bool) *bool {
	return &b
}
