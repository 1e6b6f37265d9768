// Package upload validates files submitted for a new job. Only the name, the
// declared size and, when available, the leading bytes are inspected; image
// content is never stored.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/kiranshivaraju/pixelflow/internal/config"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
	ErrEmptyName       = errors.New("file name is required")
)

// SniffLen is how many leading bytes callers should supply in File.Header.
// JPEG metadata segments can push the frame header well past the first block.
const SniffLen = 64 << 10

// File describes one submitted file.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	// Header holds the first bytes of the content, if the transport provided any.
	Header []byte `json:"-"`
}

// formats maps accepted extensions to the image.DecodeConfig format name.
var formats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".webp": "webp",
}

// Validate checks a single file against the limits.
func Validate(f File, limits config.UploadConfig) error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	want, ok := formats[ext]
	if !ok {
		return fmt.Errorf("%s: %w: extension %q", f.Name, ErrUnsupportedType, ext)
	}
	if f.Size < 0 || (limits.MaxFileBytes > 0 && f.Size > limits.MaxFileBytes) {
		return fmt.Errorf("%s: %w: %d bytes exceeds %d", f.Name, ErrFileTooLarge, f.Size, limits.MaxFileBytes)
	}
	if len(f.Header) == 0 {
		return nil
	}

	_, got, err := image.DecodeConfig(bytes.NewReader(f.Header))
	if err != nil && !truncatedSniff(f.Header, got, err) {
		return fmt.Errorf("%s: %w: content is not a recognised image", f.Name, ErrUnsupportedType)
	}
	if got != want {
		return fmt.Errorf("%s: %w: content is %s, extension says %s", f.Name, ErrUnsupportedType, got, want)
	}
	return nil
}

// truncatedSniff reports whether the decoder recognised the format but ran out
// of a full-length header before reaching the image dimensions.
func truncatedSniff(header []byte, format string, err error) bool {
	return format != "" && len(header) >= SniffLen && errors.Is(err, io.ErrUnexpectedEOF)
}

// ValidateAll checks the batch size and then every file, stopping at the first failure.
func ValidateAll(files []File, limits config.UploadConfig) error {
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		return fmt.Errorf("%w: %d files exceeds %d", ErrTooManyFiles, len(files), limits.MaxFiles)
	}
	for _, f := range files {
		if err := Validate(f, limits); err != nil {
			return err
		}
	}
	return nil
}

// PlaceholderURL is the synthetic display source for the index-th file of a job.
func PlaceholderURL(jobID string, index int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s_%d/400/400", jobID, index)
}
