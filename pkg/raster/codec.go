package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// ErrUnsupportedFormat is returned for files no registered decoder understands
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Loader decodes image files
type Loader interface {
	Load(ctx context.Context, path string) (image.Image, error)
}

// Sizer reports the pixel size of an image file without decoding its pixels
type Sizer interface {
	ImageSize(path string) (types.Size, error)
}

// Codec decodes and encodes image files. Size lookups are cached because
// overlay images are re-measured for every render plan.
type Codec struct {
	sizes  *cache.Cache
	lookup singleflight.Group
}

// NewCodec creates a codec whose size cache entries live for ttl
func NewCodec(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Codec{sizes: cache.New(ttl, 2*ttl)}
}

// Load decodes an image file. WebP files that the generic decoders reject
// are retried with the dedicated WebP decoder.
func (c *Codec) Load(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
		}
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return img, nil
}

// ImageSize returns the pixel dimensions of an image file. Concurrent
// lookups of the same path share one read.
func (c *Codec) ImageSize(path string) (types.Size, error) {
	if v, ok := c.sizes.Get(path); ok {
		return v.(types.Size), nil
	}

	val, err, _ := c.lookup.Do(path, func() (any, error) {
		size, err := c.readSize(path)
		if err != nil {
			return nil, err
		}
		c.sizes.SetDefault(path, size)
		return size, nil
	})
	if err != nil {
		return types.Size{}, err
	}

	size, ok := val.(types.Size)
	if !ok {
		return types.Size{}, fmt.Errorf("unexpected return type from size lookup: %T", val)
	}
	return size, nil
}

func (c *Codec) readSize(path string) (types.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Size{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		return types.Size{Width: cfg.Width, Height: cfg.Height}, nil
	}
	img, err := c.Load(context.Background(), path)
	if err != nil {
		return types.Size{}, err
	}
	return types.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, nil
}

// Forget drops a cached size, e.g. after an overlay image was replaced on disk
func (c *Codec) Forget(path string) {
	c.sizes.Delete(path)
}

// Save encodes an image to path. An empty format is taken from the extension.
func (c *Codec) Save(img image.Image, path, format string, quality int, lossless bool) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var encode func(f *os.File) error
	switch strings.ToLower(format) {
	case "webp":
		encode = func(f *os.File) error {
			return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
		}
	case "png":
		encode = func(f *os.File) error {
			return imaging.Encode(f, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		}
	case "jpg", "jpeg":
		encode = func(f *os.File) error {
			return imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality))
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	// a rewritten file must not be measured from the cache
	defer c.Forget(path)
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return f.Close()
}
