package images

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Arrayer is implemented by values that can expose their contents as a flat
// backing slice plus a shape, such as *tensor.Dense.
type Arrayer interface {
	Shape() tensor.Shape
	Data() interface{}
}

// flatten returns the contiguous backing data of t.
func flatten(t Arrayer) (tensor.Shape, interface{}) {
	if d, ok := t.(*tensor.Dense); ok && d.IsView() {
		if m, ok := d.Materialize().(*tensor.Dense); ok {
			return m.Shape(), m.Data()
		}
	}
	return t.Shape(), t.Data()
}

// RGBFromTensor converts an H x W x 3 tensor into an RGB array.
//
// Integer and floating point element types are accepted; values are
// truncated and clamped to [0, 255].
//
// Arguments:
//   - t: The tensor in HWC layout.
//
// Returns:
//   - *RGB: The converted array.
//   - error: An error if the shape or element type is unsupported.
func RGBFromTensor(t Arrayer) (*RGB, error) {
	shape, data := flatten(t)
	if len(shape) != 3 || shape[2] != 3 {
		return nil, fmt.Errorf("image tensor must have shape (H, W, 3), got %v", shape)
	}
	out := NewRGB(shape[0], shape[1])

	switch v := data.(type) {
	case []uint8:
		if len(v) != len(out.Pix) {
			return nil, fmt.Errorf("image tensor has %d values, want %d", len(v), len(out.Pix))
		}
		copy(out.Pix, v)
		return out, nil
	default:
		vals, err := toFloat64s(data)
		if err != nil {
			return nil, err
		}
		if len(vals) != len(out.Pix) {
			return nil, fmt.Errorf("image tensor has %d values, want %d", len(vals), len(out.Pix))
		}
		for i, f := range vals {
			out.Pix[i] = uint8(Clamp(f, 0, 255))
		}
		return out, nil
	}
}

// LabelMapFromTensor converts an H x W tensor into a label map.
// Floating point values are truncated toward zero.
func LabelMapFromTensor(t Arrayer) (*LabelMap, error) {
	shape, data := flatten(t)
	if len(shape) != 2 {
		return nil, fmt.Errorf("label tensor must have shape (H, W), got %v", shape)
	}
	out := NewLabelMap(shape[0], shape[1])
	n := len(out.Pix)

	switch v := data.(type) {
	case []int32:
		if len(v) != n {
			return nil, fmt.Errorf("label tensor has %d values, want %d", len(v), n)
		}
		copy(out.Pix, v)
		return out, nil
	case []int64:
		if len(v) != n {
			return nil, fmt.Errorf("label tensor has %d values, want %d", len(v), n)
		}
		for i, x := range v {
			out.Pix[i] = int32(x)
		}
		return out, nil
	default:
		vals, err := toFloat64s(data)
		if err != nil {
			return nil, err
		}
		if len(vals) != n {
			return nil, fmt.Errorf("label tensor has %d values, want %d", len(vals), n)
		}
		for i, f := range vals {
			out.Pix[i] = int32(f)
		}
		return out, nil
	}
}

// toFloat64s widens a supported backing slice to float64.
func toFloat64s(data interface{}) ([]float64, error) {
	switch v := data.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tensor element type %T", data)
	}
}

// NewCHWTensor wraps channel-major float32 data in a (3, H, W) tensor.
func NewCHWTensor(data []float32, height, width int) (*tensor.Dense, error) {
	if len(data) != 3*height*width {
		return nil, fmt.Errorf("CHW data has %d values, want %d", len(data), 3*height*width)
	}
	return tensor.New(tensor.WithShape(3, height, width), tensor.WithBacking(data)), nil
}

// LabelTensor copies a label map into an Int64 (H, W) tensor.
func LabelTensor(lbl *LabelMap) *tensor.Dense {
	backing := make([]int64, len(lbl.Pix))
	for i, v := range lbl.Pix {
		backing[i] = int64(v)
	}
	return tensor.New(tensor.WithShape(lbl.Height, lbl.Width), tensor.WithBacking(backing))
}

// RGBTensor copies an RGB array into a Uint8 (H, W, 3) tensor.
func RGBTensor(img *RGB) *tensor.Dense {
	backing := make([]uint8, len(img.Pix))
	copy(backing, img.Pix)
	return tensor.New(tensor.WithShape(img.Height, img.Width, 3), tensor.WithBacking(backing))
}
