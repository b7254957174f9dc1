package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThumbnailWidth = 480
	// MaxSourcePixels bounds the decoded size of an image. Headers are
	// checked before decoding since a small file can declare huge bounds.
	MaxSourcePixels = 50_000_000
)

var ErrImageTooLarge = errors.New("image dimensions exceed thumbnail limit")

// Thumbnailer renders a downscaled JPEG preview next to stored images.
// It is an optional enhancement; callers log its errors and move on.
type Thumbnailer struct {
	mediaDir string
	thumbDir string
	width    int
}

func NewThumbnailer(mediaDir, thumbDir string, width int) (*Thumbnailer, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if err := os.MkdirAll(thumbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	return &Thumbnailer{mediaDir: mediaDir, thumbDir: thumbDir, width: width}, nil
}

func ThumbnailName(stored string) string {
	return strings.TrimSuffix(stored, filepath.Ext(stored)) + ".thumb.jpg"
}

func (t *Thumbnailer) Enhance(ctx context.Context, stored Stored) error {
	if stored.Kind != domain.MediaKindImage {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(t.mediaDir, stored.Name))
	if err != nil {
		return fmt.Errorf("failed to open media: %w", err)
	}
	defer src.Close()

	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return fmt.Errorf("failed to read image header %s: %w", stored.Name, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("image has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%w: %s is %dx%d", ErrImageTooLarge, stored.Name, cfg.Width, cfg.Height)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind media: %w", err)
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", stored.Name, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return errors.New("image has no pixels")
	}
	width := min(t.width, bounds.Dx())
	height := max(bounds.Dy()*width/bounds.Dx(), 1)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	out, err := os.Create(filepath.Join(t.thumbDir, ThumbnailName(stored.Name)))
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 80}); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out.Close()
}

// Discard removes the thumbnail of a stored file if one exists.
func (t *Thumbnailer) Discard(stored string) error {
	err := os.Remove(filepath.Join(t.thumbDir, ThumbnailName(stored)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves the thumbnail of a stored file.
func (t *Thumbnailer) Path(stored string) (string, error) {
	if !ValidName(stored) {
		return "", apperr.ErrNotFound
	}
	path := filepath.Join(t.thumbDir, ThumbnailName(stored))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("failed to stat thumbnail: %w", err)
	}
	return path, nil
}
