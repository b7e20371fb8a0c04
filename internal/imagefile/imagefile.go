// Package imagefile manages the directory of stored image files:
// validation, stored-filename derivation, copies, and thumbnails.
package imagefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrInvalidImage reports input that cannot be decoded as an image
// (corrupt, truncated, or unsupported format).
var ErrInvalidImage = errors.New("invalid image")

const (
	timestampLayout = "20060102_150405"
	thumbnailSize   = 512
	thumbnailQual   = 80
)

// Store owns the images and thumbnails directories. The record table
// is the source of truth for which files are live; files without a
// referencing row are inert orphans and are not cleaned up.
type Store struct {
	imagesDir string
	thumbsDir string
}

// NewStore creates the directories if needed.
func NewStore(imagesDir, thumbsDir string) (*Store, error) {
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	if thumbsDir != "" {
		if err := os.MkdirAll(thumbsDir, 0755); err != nil {
			return nil, fmt.Errorf("create thumbnails dir: %w", err)
		}
	}
	return &Store{imagesDir: imagesDir, thumbsDir: thumbsDir}, nil
}

// Validate checks that the file at path decodes as an image.
// Returns ErrInvalidImage (wrapped) when it does not.
func Validate(path string) error {
	if _, err := imaging.Open(path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// StoredFilename derives a unique storage name from the upload time
// and the client's original filename. The second-resolution timestamp
// keeps names human-traceable; the random segment keeps two uploads of
// the same name in the same second from colliding.
func StoredFilename(originalName string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", now.Format(timestampLayout), suffix, base)
}

// Path returns the absolute path of a stored file.
func (s *Store) Path(storedFilename string) string {
	return filepath.Join(s.imagesDir, storedFilename)
}

// ThumbnailPath returns the path where the thumbnail for id lives.
func (s *Store) ThumbnailPath(id int64) string {
	return filepath.Join(s.thumbsDir, fmt.Sprintf("thumb_%d.jpg", id))
}

// Save copies the file at srcPath into the images directory under
// storedFilename, preserving mode and modification time. It returns
// the destination path.
func (s *Store) Save(srcPath, storedFilename string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dstPath := s.Path(storedFilename)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close destination: %w", err)
	}
	_ = os.Chtimes(dstPath, info.ModTime(), info.ModTime())
	return dstPath, nil
}

// CreateThumbnail writes a square JPEG thumbnail for the stored file
// and returns its path.
func (s *Store) CreateThumbnail(storedPath string, id int64) (string, error) {
	if s.thumbsDir == "" {
		return "", fmt.Errorf("thumbnails disabled")
	}
	src, err := imaging.Open(storedPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	thumb := imaging.Fill(src, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos)
	thumbPath := s.ThumbnailPath(id)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(thumbnailQual)); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return thumbPath, nil
}
