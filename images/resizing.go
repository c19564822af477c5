package images

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

// Codec decodes dataset files into arrays and resizes them.
//
// ResizeRGB must use continuous interpolation. ResizeLabel must use
// nearest-neighbor so that no new class values are invented.
//
// DecodeLabel keeps 8-bit gray as is, keeps the low byte of 16-bit gray and
// reduces color files with color.GrayModel. Paletted files are the one
// exception: PNGCodec returns palette indices, while OpenCV expands the
// palette to colors first.
type Codec interface {
	// DecodeRGB reads an image file into an H x W x 3 byte array.
	DecodeRGB(path string) (*RGB, error)
	// DecodeLabel reads a single-channel label file into an H x W map.
	DecodeLabel(path string) (*LabelMap, error)
	// ResizeRGB resamples an image with continuous interpolation.
	ResizeRGB(img *RGB, size Size) (*RGB, error)
	// ResizeLabel resamples a label map with nearest-neighbor interpolation.
	ResizeLabel(lbl *LabelMap, size Size) (*LabelMap, error)
}

// PNGCodec is the pure Go codec: image/png for decoding, nfnt/resize for
// continuous resampling and an exact nearest-neighbor sampler for labels.
type PNGCodec struct {
	// Filter is the continuous filter used by ResizeRGB.
	Filter ResampleFilter
}

// NewPNGCodec returns a PNGCodec using bilinear interpolation for images.
func NewPNGCodec() *PNGCodec {
	return &PNGCodec{Filter: BilinearFilter}
}

// DecodeRGB implements Codec.
func (c *PNGCodec) DecodeRGB(path string) (*RGB, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return RGBFromImage(img), nil
}

// DecodeLabel implements Codec.
func (c *PNGCodec) DecodeLabel(path string) (*LabelMap, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return LabelMapFromImage(img), nil
}

// ResizeRGB implements Codec.
func (c *PNGCodec) ResizeRGB(img *RGB, size Size) (*RGB, error) {
	filter := c.Filter
	if filter == NearestNeighborFilter {
		filter = BilinearFilter
	}
	return ResizeRGB(img, size, filter)
}

// ResizeLabel implements Codec.
func (c *PNGCodec) ResizeLabel(lbl *LabelMap, size Size) (*LabelMap, error) {
	return ResizeLabels(lbl, size)
}

// decodeFile reads and decodes a PNG file.
func decodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data in %s", path)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// WritePNG encodes img into a new file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
