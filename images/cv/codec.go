// Package cv - OpenCV backed implementation of images.Codec.
package cv

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-cityscapes/images"
)

// Codec decodes and resizes through OpenCV. Images are resized with
// InterpolationLinear and labels with InterpolationNearestNeighbor on a
// float32 matrix.
type Codec struct{}

var _ images.Codec = (*Codec)(nil)

// NewCodec returns an OpenCV codec.
func NewCodec() *Codec {
	return &Codec{}
}

// DecodeRGB implements images.Codec.
//
// Arguments:
//   - path: The image file to read.
//
// Returns:
//   - *images.RGB: The decoded pixels in RGB order.
//   - error: An error if OpenCV could not read the file.
func (c *Codec) DecodeRGB(path string) (*images.RGB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", path)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	return &images.RGB{Height: rgb.Rows(), Width: rgb.Cols(), Pix: rgb.ToBytes()}, nil
}

// DecodeLabel implements images.Codec. It reads the file unchanged and
// converts it the way images.LabelMapFromImage does: 16-bit gray keeps the
// low byte and color files are reduced with color.GrayModel.
func (c *Codec) DecodeLabel(path string) (*images.LabelMap, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode label %s", path)
	}

	out := images.NewLabelMap(mat.Rows(), mat.Cols())
	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		for i, v := range mat.ToBytes() {
			out.Pix[i] = int32(v)
		}
	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		data := mat.ToBytes()
		ch := mat.Channels()
		for i := range out.Pix {
			p := data[i*ch : i*ch+ch]
			px := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
			if ch == 4 {
				px.A = p[3]
			}
			out.Pix[i] = grayCode(px)
		}
	case gocv.MatTypeCV16UC1:
		data, err := mat.DataPtrUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read label %s: %w", path, err)
		}
		for i, v := range data {
			out.Pix[i] = int32(uint8(v))
		}
	case gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		data, err := mat.DataPtrUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read label %s: %w", path, err)
		}
		ch := mat.Channels()
		for i := range out.Pix {
			p := data[i*ch : i*ch+ch]
			px := color.NRGBA64{R: p[2], G: p[1], B: p[0], A: 0xffff}
			if ch == 4 {
				px.A = p[3]
			}
			out.Pix[i] = grayCode(px)
		}
	default:
		return nil, fmt.Errorf("label %s has unsupported type %v", path, mat.Type())
	}
	return out, nil
}

func grayCode(c color.Color) int32 {
	return int32(color.GrayModel.Convert(c).(color.Gray).Y)
}

// ResizeRGB implements images.Codec.
func (c *Codec) ResizeRGB(img *images.RGB, size images.Size) (*images.RGB, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid target size %s", size)
	}
	src, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap image: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: size.Width, Y: size.Height}, 0, 0, gocv.InterpolationLinear)
	if dst.Empty() {
		return nil, fmt.Errorf("failed to resize image to %s", size)
	}

	return &images.RGB{Height: dst.Rows(), Width: dst.Cols(), Pix: dst.ToBytes()}, nil
}

// ResizeLabel implements images.Codec. Values are cast to float32 before
// resizing and truncated back to int32 afterwards.
func (c *Codec) ResizeLabel(lbl *images.LabelMap, size images.Size) (*images.LabelMap, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid target size %s", size)
	}
	src := gocv.NewMatWithSize(lbl.Height, lbl.Width, gocv.MatTypeCV32FC1)
	defer src.Close()
	for y := 0; y < lbl.Height; y++ {
		for x := 0; x < lbl.Width; x++ {
			src.SetFloatAt(y, x, float32(lbl.At(y, x)))
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: size.Width, Y: size.Height}, 0, 0, gocv.InterpolationNearestNeighbor)
	if dst.Empty() {
		return nil, fmt.Errorf("failed to resize label to %s", size)
	}

	vals, err := dst.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read resized label: %w", err)
	}
	out := images.NewLabelMap(dst.Rows(), dst.Cols())
	for i, v := range vals {
		out.Pix[i] = int32(v)
	}
	return out, nil
}
