package raster

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	// Fill with a gradient pattern
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.NRGBA{r, g, 128, 255})
		}
	}

	return img
}

func TestConvert(t *testing.T) {
	img := createTestImage(300, 200)

	rgb := Convert(img, Options{})
	assert.Equal(t, 300, rgb.Width)
	assert.Equal(t, 200, rgb.Height)
	assert.Equal(t, 3, rgb.Channels)
	assert.Len(t, rgb.Pix, 300*200*3)
	r, g, b := rgb.RGB(299, 199)
	assert.Equal(t, uint8(254), r)
	assert.Equal(t, uint8(253), g)
	assert.Equal(t, uint8(128), b)

	gray := Convert(img, Options{Grayscale: true})
	assert.Equal(t, 1, gray.Channels)
	assert.Len(t, gray.Pix, 300*200)

	small := Convert(img, Options{Grayscale: true, ResizeWidth: 150})
	assert.Equal(t, 150, small.Width)
	assert.Equal(t, 100, small.Height)
}

func TestGray(t *testing.T) {
	red := &Raster{Width: 1, Height: 1, Channels: 3, Pix: []byte{255, 0, 0}}
	assert.InDelta(t, 0.299*255, red.Gray(0, 0), 1e-9)

	g := FromGray(1, 1, []byte{76})
	assert.Equal(t, 1, g.Channels)
	assert.Equal(t, 76.0, g.Gray(0, 0))

	v, _, _ := g.RGB(0, 0)
	assert.Equal(t, uint8(76), v)
}

func TestCodecSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec(0)
	img := createTestImage(64, 48)

	for _, name := range []string{"out.png", "out.jpg", "nested/out.webp"} {
		path := filepath.Join(dir, name)
		require.NoError(t, codec.Save(img, path, "", 90, true), name)

		loaded, err := codec.Load(context.Background(), path)
		require.NoError(t, err, name)
		assert.Equal(t, 64, loaded.Bounds().Dx(), name)
		assert.Equal(t, 48, loaded.Bounds().Dy(), name)

		size, err := codec.ImageSize(path)
		require.NoError(t, err, name)
		assert.Equal(t, 64, size.Width, name)
		assert.Equal(t, 48, size.Height, name)
	}
}

func TestCodecSizeCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.png")
	codec := NewCodec(0)

	require.NoError(t, codec.Save(createTestImage(10, 10), path, "png", 0, false))
	size, err := codec.ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 10, size.Width)

	// replace the file behind the codec's back
	other := filepath.Join(dir, "other.png")
	require.NoError(t, NewCodec(0).Save(createTestImage(20, 30), other, "png", 0, false))
	data, err := os.ReadFile(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	size, err = codec.ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 10, size.Width, "size is served from cache")

	codec.Forget(path)
	size, err = codec.ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 20, size.Width)
	assert.Equal(t, 30, size.Height)
}

func TestCodecSaveRefreshesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.png")
	codec := NewCodec(0)

	require.NoError(t, codec.Save(createTestImage(10, 10), path, "png", 0, false))
	size, err := codec.ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 10, size.Width)

	require.NoError(t, codec.Save(createTestImage(40, 20), path, "png", 0, false))
	size, err = codec.ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 40, size.Width)
	assert.Equal(t, 20, size.Height)
}

func TestCodecSizeConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.webp")
	codec := NewCodec(0)
	require.NoError(t, codec.Save(createTestImage(12, 8), path, "", 0, true))

	var wg sync.WaitGroup
	sizes := make([]image.Point, 16)
	for i := range sizes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			size, err := codec.ImageSize(path)
			assert.NoError(t, err)
			sizes[i] = image.Pt(size.Width, size.Height)
		}(i)
	}
	wg.Wait()

	for _, s := range sizes {
		assert.Equal(t, image.Pt(12, 8), s)
	}
}

func TestCodecErrors(t *testing.T) {
	codec := NewCodec(0)
	dir := t.TempDir()

	_, err := codec.Load(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = codec.ImageSize(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	err = codec.Save(createTestImage(4, 4), filepath.Join(dir, "out.bmp"), "", 0, false)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = codec.Load(ctx, filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, context.Canceled)
}
