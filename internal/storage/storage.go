// Package storage puts badge images somewhere an issued badge can point
// at and resolves the URLs embedded in badge documents.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"badgehub/internal/models"
)

// StoredImage is the result of persisting a badge image.
type StoredImage struct {
	Ref  string // opaque reference stored on the badge class
	Type string // models.ImageTypePNG or models.ImageTypeSVG
	URL  string // canonical URL of the stored image
}

// ImageStore stores badge class images and resolves display URLs.
//
// ResolveURL returns the canonical URL for PNG images and a raster
// thumbnail URL of the configured width for SVG images, so consumers
// that cannot render vector art still get a usable image.
type ImageStore interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (*StoredImage, error)
	ResolveURL(ref, imageType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Validation errors shared by store implementations.
var (
	ErrFileTooLarge       = fmt.Errorf("file size exceeds limit")
	ErrInvalidContentType = fmt.Errorf("invalid content type")
	ErrUnableToOpenFile   = fmt.Errorf("unable to open file")
	ErrUnableToReadFile   = fmt.Errorf("unable to read file")
	ErrUploadFailed       = fmt.Errorf("failed to upload file")
	ErrDeleteFailed       = fmt.Errorf("failed to delete file")
	ErrUnsupportedType    = fmt.Errorf("unsupported stored image type")
)

// sniffImageType inspects the file header and contents and classifies
// the image as PNG or SVG. Everything else is rejected; badge images
// are restricted to these two formats at the door.
func sniffImageType(file *multipart.FileHeader, maxSize int64) (string, error) {
	if maxSize > 0 && file.Size > maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.Size)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnableToOpenFile, err)
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("%w: %v", ErrUnableToReadFile, err)
	}
	buffer = buffer[:n]

	contentType := http.DetectContentType(buffer)

	switch {
	case contentType == "image/png":
		return models.ImageTypePNG, nil
	case isSVG(contentType, buffer, file.Filename):
		return models.ImageTypeSVG, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
}

// isSVG handles the fact that content sniffing reports SVG as generic
// XML or text; the document itself has to open with an svg element.
func isSVG(contentType string, head []byte, filename string) bool {
	if !strings.HasPrefix(contentType, "text/xml") &&
		!strings.HasPrefix(contentType, "text/plain") &&
		contentType != "image/svg+xml" {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".svg") {
		return false
	}
	return bytes.Contains(head, []byte("<svg")) || bytes.Contains(head, []byte("<?xml"))
}
