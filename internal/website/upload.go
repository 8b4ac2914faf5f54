package website

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// DefaultMaxUploadSize is used when UploadConfig.MaxSize is not set.
const DefaultMaxUploadSize = 5 << 20

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadConfig holds local image storage settings.
type UploadConfig struct {
	Dir       string
	URLPrefix string
	MaxSize   int64
}

// Uploader stores uploaded images on local disk under random names.
type Uploader struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

// NewUploader creates the upload directory if needed and returns an Uploader.
func NewUploader(cfg UploadConfig) (*Uploader, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxUploadSize
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/uploads"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: cfg.Dir, urlPrefix: cfg.URLPrefix, maxSize: cfg.MaxSize}, nil
}

// MaxSize returns the maximum accepted file size in bytes.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Dir returns the directory uploaded files are written to.
func (u *Uploader) Dir() string {
	return u.dir
}

// Save validates that r holds a supported image no larger than the
// configured limit, writes it to disk and returns its public URL.
// The client-supplied file name is never used.
func (u *Uploader) Save(ctx context.Context, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", ErrNoFile
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	target := filepath.Join(u.dir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), u.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > u.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			ctxlog.FromContext(ctx).Warn("failed to remove partial upload", "file", target, "error", rmErr)
		}
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}

	ctxlog.FromContext(ctx).Info("image uploaded", "file", name, "bytes", written)

	return path.Join(u.urlPrefix, name), nil
}
