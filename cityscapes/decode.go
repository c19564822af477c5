package cityscapes

import "github.com/nvr-ai/go-cityscapes/images"

// DecodeSegmap paints a compact label map with the class palette.
//
// Pixels holding a class id in [0, NumClasses) get Palette[id] scaled to
// [0, 1]. IgnoreIndex and every other value stay black.
//
// Arguments:
//   - labels: An encoded label map.
//
// Returns:
//   - *images.Float3: An H x W x 3 array of colors in [0, 1].
func DecodeSegmap(labels *images.LabelMap) *images.Float3 {
	out := images.NewFloat3(labels.Height, labels.Width)
	for i, v := range labels.Pix {
		if v < 0 || v >= NumClasses {
			continue
		}
		c := Palette[v]
		out.Pix[i*3] = float64(c[0]) / 255.0
		out.Pix[i*3+1] = float64(c[1]) / 255.0
		out.Pix[i*3+2] = float64(c[2]) / 255.0
	}
	return out
}

// Colorize is DecodeSegmap rendered to bytes, ready for PNG encoding.
func Colorize(labels *images.LabelMap) *images.RGB {
	return DecodeSegmap(labels).ToRGB()
}
