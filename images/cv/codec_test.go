package cv

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-cityscapes/images"
)

func TestCodecDecodeRGB(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, images.WritePNG(path, src))

	img, err := NewCodec().DecodeRGB(path)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Height)
	assert.Equal(t, 8, img.Width)
	r, g, b := img.At(3, 4)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b}, "channels come back in RGB order")

	_, err = NewCodec().DecodeRGB(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestCodecDecodeLabel(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	copy(gray.Pix, []uint8{7, 8, 11, 0, 250, 33})
	path := filepath.Join(t.TempDir(), "lbl.png")
	require.NoError(t, images.WritePNG(path, gray))

	lbl, err := NewCodec().DecodeLabel(path)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 8, 11, 0, 250, 33}, lbl.Pix)
}

func TestCodecResize(t *testing.T) {
	img := images.NewRGB(10, 20)
	for i := range img.Pix {
		img.Pix[i] = 90
	}
	out, err := NewCodec().ResizeRGB(img, images.Size{Height: 5, Width: 7})
	require.NoError(t, err)
	assert.Equal(t, images.Size{Height: 5, Width: 7}, out.Size())
	assert.Equal(t, uint8(90), out.Pix[0])

	lbl := images.NewLabelMap(4, 4)
	for i := range lbl.Pix {
		lbl.Pix[i] = int32(i%2) * 18
	}
	resized, err := NewCodec().ResizeLabel(lbl, images.Square(9))
	require.NoError(t, err)
	assert.Equal(t, images.Square(9), resized.Size())
	for _, v := range resized.Unique() {
		assert.Contains(t, []int32{0, 18}, v)
	}

	_, err = NewCodec().ResizeLabel(lbl, images.Size{})
	assert.Error(t, err)
}

func TestCodecDecodeLabelMatchesPNGCodec(t *testing.T) {
	dir := t.TempDir()

	rgb := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i, c := range []color.RGBA{{128, 64, 128, 255}, {0, 0, 142, 255}, {7, 7, 7, 255}, {255, 0, 0, 255}, {0, 255, 0, 255}, {70, 130, 180, 255}} {
		rgb.SetRGBA(i%3, i/3, c)
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i, c := range []color.NRGBA{{200, 100, 50, 128}, {26, 26, 26, 255}, {0, 0, 0, 0}, {90, 180, 30, 64}} {
		nrgba.SetNRGBA(i%2, i/2, c)
	}
	gray16 := image.NewGray16(image.Rect(0, 0, 3, 1))
	for x, v := range []uint16{26, 3<<8 | 7, 0xff00 | 250} {
		gray16.SetGray16(x, 0, color.Gray16{Y: v})
	}
	rgba64 := image.NewRGBA64(image.Rect(0, 0, 2, 1))
	rgba64.SetRGBA64(0, 0, color.RGBA64{R: 0x1a00, G: 0x1a00, B: 0x1a00, A: 0xffff})
	rgba64.SetRGBA64(1, 0, color.RGBA64{R: 0xffff, G: 0x8000, B: 0x0101, A: 0xffff})

	tests := []struct {
		name string
		img  image.Image
	}{
		{"rgb", rgb},
		{"rgba", nrgba},
		{"gray16", gray16},
		{"rgb16", rgba64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".png")
			require.NoError(t, images.WritePNG(path, tt.img))

			want, err := images.NewPNGCodec().DecodeLabel(path)
			require.NoError(t, err)
			got, err := NewCodec().DecodeLabel(path)
			require.NoError(t, err)
			assert.Equal(t, want.Size(), got.Size())
			assert.Equal(t, want.Pix, got.Pix)
		})
	}
}
