// Package media validates, classifies and stores uploaded article assets.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/slug"
	"github.com/google/uuid"
)

const (
	DefaultMaxBytes int64 = 32 << 20
	maxStemLength         = 48
	tempPattern           = ".upload-*"
)

var extensionKinds = map[string]domain.MediaKind{
	"png":  domain.MediaKindImage,
	"jpg":  domain.MediaKindImage,
	"jpeg": domain.MediaKindImage,
	"gif":  domain.MediaKindImage,
	"webp": domain.MediaKindImage,
	"mp4":  domain.MediaKindVideo,
	"mov":  domain.MediaKindVideo,
	"avi":  domain.MediaKindVideo,
}

var storedNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_[a-z0-9-]{1,64}\.(png|jpg|jpeg|gif|webp|mp4|mov|avi)$`)

type Config struct {
	Dir      string
	MaxBytes int64
}

type Stored struct {
	Name string
	Kind domain.MediaKind
	Size int64
}

// Ingester writes uploads into a single flat directory. Stored names are
// generated, caller supplied names never become paths.
type Ingester struct {
	dir      string
	maxBytes int64
}

func NewIngester(cfg Config) (*Ingester, error) {
	if cfg.Dir == "" {
		return nil, errors.New("media directory is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &Ingester{dir: cfg.Dir, maxBytes: cfg.MaxBytes}, nil
}

func (i *Ingester) MaxBytes() int64 {
	return i.maxBytes
}

// KindOf classifies a filename by its extension, case-insensitively.
func KindOf(filename string) (domain.MediaKind, string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(baseName(filename)), "."))
	kind, ok := extensionKinds[ext]
	return kind, ext, ok
}

// Ingest validates the upload and writes it under a fresh collision-free
// name. Nothing is written when validation fails, and a partial file is
// removed if the copy fails or ctx is cancelled.
func (i *Ingester) Ingest(ctx context.Context, filename string, content io.Reader, declaredSize int64) (Stored, error) {
	kind, ext, ok := KindOf(filename)
	if !ok {
		if ext == "" {
			return Stored{}, apperr.NewRejectedMedia("file has no extension")
		}
		return Stored{}, apperr.NewRejectedMedia(fmt.Sprintf("extension %q is not allowed", ext))
	}
	if declaredSize > i.maxBytes {
		return Stored{}, apperr.NewRejectedMedia(fmt.Sprintf("file exceeds the %d MiB limit", i.maxBytes>>20))
	}
	if declaredSize == 0 {
		return Stored{}, apperr.NewRejectedMedia("file is empty")
	}

	tmp, err := os.CreateTemp(i.dir, tempPattern)
	if err != nil {
		return Stored{}, fmt.Errorf("failed to create upload file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Error("failed to remove partial upload", "path", tmp.Name(), "error", rmErr)
			}
		}
	}()

	written, err := io.Copy(tmp, io.LimitReader(&contextReader{ctx: ctx, r: content}, i.maxBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Stored{}, fmt.Errorf("upload aborted: %w", ctxErr)
		}
		return Stored{}, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > i.maxBytes {
		return Stored{}, apperr.NewRejectedMedia(fmt.Sprintf("file exceeds the %d MiB limit", i.maxBytes>>20))
	}
	if written == 0 {
		return Stored{}, apperr.NewRejectedMedia("file is empty")
	}

	if err := tmp.Close(); err != nil {
		return Stored{}, fmt.Errorf("failed to flush upload: %w", err)
	}

	name := storedName(filename, ext)
	if err := os.Rename(tmp.Name(), filepath.Join(i.dir, name)); err != nil {
		return Stored{}, fmt.Errorf("failed to finalize upload: %w", err)
	}
	committed = true

	slog.Info("media stored", "name", name, "kind", kind, "bytes", written)
	return Stored{Name: name, Kind: kind, Size: written}, nil
}

// Path resolves a stored name to its location on disk. Anything that is
// not a name this ingester could have produced is reported as not found.
func (i *Ingester) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", apperr.ErrNotFound
	}
	path := filepath.Join(i.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("failed to stat media: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (i *Ingester) Remove(name string) error {
	if !ValidName(name) {
		return apperr.ErrNotFound
	}
	if err := os.Remove(filepath.Join(i.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove media %s: %w", name, err)
	}
	return nil
}

func ValidName(name string) bool {
	return name == filepath.Base(name) && storedNamePattern.MatchString(name)
}

func storedName(original, ext string) string {
	base := baseName(original)
	stem := slug.Normalize(strings.TrimSuffix(base, filepath.Ext(base)))
	if len(stem) > maxStemLength {
		stem = strings.TrimRight(stem[:maxStemLength], "-")
	}
	if stem == "" {
		stem = "upload"
	}
	return uuid.NewString() + "_" + stem + "." + ext
}

// baseName drops any directory part, whichever separator the client used.
func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
