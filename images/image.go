// Package images - dense pixel arrays used by the dataset pipeline.
package images

import (
	"fmt"
	"image"
	"image/color"
	"sort"
)

// RGB is an 8-bit, height x width x 3 pixel array in row-major HWC order.
type RGB struct {
	// Height is the number of rows.
	Height int `json:"height" yaml:"height"`
	// Width is the number of columns.
	Width int `json:"width" yaml:"width"`
	// Pix holds the interleaved R, G, B bytes; len(Pix) == Height*Width*3.
	Pix []uint8 `json:"-" yaml:"-"`
}

// NewRGB allocates a zeroed RGB array.
func NewRGB(height, width int) *RGB {
	return &RGB{Height: height, Width: width, Pix: make([]uint8, height*width*3)}
}

// Offset returns the index of the first channel of the pixel at (y, x).
func (a *RGB) Offset(y, x int) int {
	return (y*a.Width + x) * 3
}

// At returns the R, G, B bytes at (y, x).
func (a *RGB) At(y, x int) (r, g, b uint8) {
	i := a.Offset(y, x)
	return a.Pix[i], a.Pix[i+1], a.Pix[i+2]
}

// Set writes the R, G, B bytes at (y, x).
func (a *RGB) Set(y, x int, r, g, b uint8) {
	i := a.Offset(y, x)
	a.Pix[i], a.Pix[i+1], a.Pix[i+2] = r, g, b
}

// Size returns the array dimensions.
func (a *RGB) Size() Size {
	return Size{Height: a.Height, Width: a.Width}
}

// Image wraps the array in an opaque *image.RGBA.
func (a *RGB) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			i := a.Offset(y, x)
			j := img.PixOffset(x, y)
			img.Pix[j] = a.Pix[i]
			img.Pix[j+1] = a.Pix[i+1]
			img.Pix[j+2] = a.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
	}
	return img
}

// RGBFromImage copies any image.Image into an RGB array, dropping alpha.
//
// Arguments:
//   - img: The decoded source image.
//
// Returns:
//   - *RGB: The HWC byte array.
func RGBFromImage(img image.Image) *RGB {
	b := img.Bounds()
	out := NewRGB(b.Dy(), b.Dx())

	// Fast path for the common decoder outputs.
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < out.Height; y++ {
			row := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < out.Width; x++ {
				j := row + x*4
				out.Set(y, x, src.Pix[j], src.Pix[j+1], src.Pix[j+2])
			}
		}
		return out
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			row := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < out.Width; x++ {
				j := row + x*4
				out.Set(y, x, src.Pix[j], src.Pix[j+1], src.Pix[j+2])
			}
		}
		return out
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.Set(y, x, c.R, c.G, c.B)
		}
	}
	return out
}

// LabelMap is a height x width grid of integer class codes.
//
// The same type carries raw annotation codes before encoding and compact
// class indices (or the ignore sentinel) after.
type LabelMap struct {
	// Height is the number of rows.
	Height int `json:"height" yaml:"height"`
	// Width is the number of columns.
	Width int `json:"width" yaml:"width"`
	// Pix holds one value per pixel in row-major order.
	Pix []int32 `json:"-" yaml:"-"`
}

// NewLabelMap allocates a zeroed label map.
func NewLabelMap(height, width int) *LabelMap {
	return &LabelMap{Height: height, Width: width, Pix: make([]int32, height*width)}
}

// NewLabelMapFilled allocates a label map with every pixel set to v.
func NewLabelMapFilled(height, width int, v int32) *LabelMap {
	m := NewLabelMap(height, width)
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

// LabelMapFromRows builds a label map from a rectangular slice of rows.
func LabelMapFromRows(rows [][]int32) (*LabelMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("label rows are empty")
	}
	m := NewLabelMap(len(rows), len(rows[0]))
	for y, row := range rows {
		if len(row) != m.Width {
			return nil, fmt.Errorf("row %d has %d values, want %d", y, len(row), m.Width)
		}
		copy(m.Pix[y*m.Width:], row)
	}
	return m, nil
}

// At returns the value at (y, x).
func (m *LabelMap) At(y, x int) int32 {
	return m.Pix[y*m.Width+x]
}

// Set writes the value at (y, x).
func (m *LabelMap) Set(y, x int, v int32) {
	m.Pix[y*m.Width+x] = v
}

// Size returns the map dimensions.
func (m *LabelMap) Size() Size {
	return Size{Height: m.Height, Width: m.Width}
}

// Clone returns a deep copy.
func (m *LabelMap) Clone() *LabelMap {
	out := &LabelMap{Height: m.Height, Width: m.Width, Pix: make([]int32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Unique returns the distinct values of the map in ascending order.
func (m *LabelMap) Unique() []int32 {
	seen := make(map[int32]struct{})
	for _, v := range m.Pix {
		seen[v] = struct{}{}
	}
	out := make([]int32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LabelMapFromImage reads a single-channel label image.
//
// Gray images yield their intensity, paletted images yield the palette
// index, 16-bit gray is truncated to its low byte. Anything else is
// converted to 8-bit gray first.
func LabelMapFromImage(img image.Image) *LabelMap {
	b := img.Bounds()
	out := NewLabelMap(b.Dy(), b.Dx())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			row := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < out.Width; x++ {
				out.Set(y, x, int32(src.Pix[row+x]))
			}
		}
	case *image.Paletted:
		for y := 0; y < out.Height; y++ {
			row := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < out.Width; x++ {
				out.Set(y, x, int32(src.Pix[row+x]))
			}
		}
	case *image.Gray16:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Set(y, x, int32(uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)))
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out.Set(y, x, int32(c.Y))
			}
		}
	}
	return out
}

// Gray renders the map as an 8-bit gray image, clamping values to [0, 255].
func (m *LabelMap) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		img.Pix[i] = uint8(Clamp(float64(v), 0, 255))
	}
	return img
}

// Float3 is a height x width x 3 float64 array in HWC order.
type Float3 struct {
	Height int
	Width  int
	Pix    []float64
}

// NewFloat3 allocates a zeroed Float3.
func NewFloat3(height, width int) *Float3 {
	return &Float3{Height: height, Width: width, Pix: make([]float64, height*width*3)}
}

// At returns the three channel values at (y, x).
func (f *Float3) At(y, x int) [3]float64 {
	i := (y*f.Width + x) * 3
	return [3]float64{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

// ToRGB rescales [0, 1] values to bytes, clamping out-of-range input.
func (f *Float3) ToRGB() *RGB {
	out := NewRGB(f.Height, f.Width)
	for i, v := range f.Pix {
		out.Pix[i] = uint8(Clamp(v*255.0+0.5, 0, 255))
	}
	return out
}
