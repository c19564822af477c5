package cityscapes

import (
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-cityscapes/images"
)

// quietLogger keeps construction notices out of test output.
var quietLogger = log.New(io.Discard, "", 0)

// solidImage returns a w x h opaque image filled with c.
func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// solidLabel returns a w x h gray label image filled with code.
func solidLabel(w, h int, code uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = code
	}
	return img
}

// writeSample lays out one image/label pair under root the way the
// fine-annotation release does and returns the image path.
func writeSample(t *testing.T, root, split, city, stem string, img image.Image, lbl image.Image) string {
	t.Helper()

	imgDir := filepath.Join(root, ImagesDir, split, city)
	require.NoError(t, os.MkdirAll(imgDir, 0o755))
	imgPath := filepath.Join(imgDir, stem+"leftImg8bit.png")
	require.NoError(t, images.WritePNG(imgPath, img))

	if lbl != nil {
		lblDir := filepath.Join(root, AnnotationsDir, split, city)
		require.NoError(t, os.MkdirAll(lblDir, 0o755))
		require.NoError(t, images.WritePNG(filepath.Join(lblDir, stem+LabelSuffix), lbl))
	}
	return imgPath
}

// newTestDataset builds a one-sample tree and a dataset over it.
func newTestDataset(t *testing.T, cfg Config, opts ...Option) *Dataset {
	t.Helper()
	root := t.TempDir()
	writeSample(t, root, "train", "cityA", "img_000019_",
		solidImage(8, 6, color.RGBA{R: 10, G: 20, B: 30, A: 255}), solidLabel(8, 6, 7))

	cfg.Root = root
	ds, err := New(cfg, append([]Option{WithLogger(quietLogger)}, opts...)...)
	require.NoError(t, err)
	return ds
}
