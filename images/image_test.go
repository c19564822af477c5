package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRGBImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	src.Set(2, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	arr := RGBFromImage(src)
	assert.Equal(t, 2, arr.Height)
	assert.Equal(t, 3, arr.Width)

	r, g, b := arr.At(1, 2)
	assert.Equal(t, [3]uint8{200, 100, 50}, [3]uint8{r, g, b})

	back := RGBFromImage(arr.Image())
	assert.Equal(t, arr.Pix, back.Pix)
}

func TestLabelMapFromImage(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.Black, color.White, color.Gray{Y: 9}})
	pal.SetColorIndex(1, 0, 2)

	lbl := LabelMapFromImage(pal)
	assert.Equal(t, []int32{0, 2}, lbl.Pix, "paletted images yield palette indices")

	g16 := image.NewGray16(image.Rect(0, 0, 1, 1))
	g16.SetGray16(0, 0, color.Gray16{Y: 0x0107})
	assert.Equal(t, []int32{7}, LabelMapFromImage(g16).Pix)
}

func TestLabelMapUnique(t *testing.T) {
	lbl, err := LabelMapFromRows([][]int32{{5, 250, 0}, {0, 5, 5}})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 5, 250}, lbl.Unique())

	_, err = LabelMapFromRows([][]int32{{1, 2}, {3}})
	assert.Error(t, err, "ragged rows are rejected")
}

func TestFloat3ToRGB(t *testing.T) {
	f := NewFloat3(1, 1)
	copy(f.Pix, []float64{1, 0.5, -1})
	assert.Equal(t, []uint8{255, 128, 0}, f.ToRGB().Pix)
}

func TestSizeUnmarshalYAML(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"size: 512", Square(512)},
		{"size: [512, 1024]", Size{Height: 512, Width: 1024}},
		{"size: {height: 3, width: 4}", Size{Height: 3, Width: 4}},
	}
	for _, tt := range tests {
		var out struct {
			Size Size `yaml:"size"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(tt.in), &out), tt.in)
		assert.Equal(t, tt.want, out.Size, tt.in)
	}

	var bad struct {
		Size Size `yaml:"size"`
	}
	assert.Error(t, yaml.Unmarshal([]byte("size: [1, 2, 3]"), &bad))
}
