package cityscapes

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-cityscapes/images"
)

// Transform turns an (image, encoded label) pair into model-ready tensors.
//
// The steps run in a fixed order:
//  1. resize the image to ImgSize with continuous interpolation;
//  2. reorder channels RGB -> BGR;
//  3. subtract the mean profile on the 0-255 scale;
//  4. divide by 255 when ImgNorm is set, after the mean subtraction;
//  5. lay the image out as (channel, height, width);
//  6. resize the label to ImgSize with nearest-neighbor interpolation;
//  7. reject labels holding anything other than IgnoreIndex or [0, NumClasses).
//
// Arguments:
//   - img: The HWC RGB image.
//   - lbl: The encoded label map.
//
// Returns:
//   - *tensor.Dense: Float32 image of shape (3, H, W).
//   - *tensor.Dense: Int64 label of shape (H, W).
//   - error: ErrInvalidSegmentation for out-of-range labels, or a resize failure.
func (d *Dataset) Transform(img *images.RGB, lbl *images.LabelMap) (*tensor.Dense, *tensor.Dense, error) {
	if img == nil || lbl == nil {
		return nil, nil, errors.New("transform needs both an image and a label")
	}
	size := d.cfg.ImgSize

	resized, err := d.codec.ResizeRGB(img, size)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resize image")
	}
	chw := d.normalize(resized)

	before := lbl.Unique()
	resizedLbl, err := d.codec.ResizeLabel(lbl, size)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resize label")
	}
	if err := checkLabels(resizedLbl); err != nil {
		return nil, nil, errors.WithMessagef(err, "before resize %v, after resize %v", before, resizedLbl.Unique())
	}

	imgTensor, err := images.NewCHWTensor(chw, size.Height, size.Width)
	if err != nil {
		return nil, nil, err
	}
	return imgTensor, images.LabelTensor(resizedLbl), nil
}

// TransformTensors is Transform for inputs already held as tensors, e.g.
// the output of a tensor-based augmentation. The image must be (H, W, 3)
// and the label (H, W).
func (d *Dataset) TransformTensors(img, lbl images.Arrayer) (*tensor.Dense, *tensor.Dense, error) {
	rgb, err := images.RGBFromTensor(img)
	if err != nil {
		return nil, nil, errors.Wrap(err, "image tensor")
	}
	labels, err := images.LabelMapFromTensor(lbl)
	if err != nil {
		return nil, nil, errors.Wrap(err, "label tensor")
	}
	return d.Transform(rgb, labels)
}

// normalize converts a resized RGB array into BGR, mean-subtracted,
// optionally rescaled CHW float32 data.
func (d *Dataset) normalize(img *images.RGB) []float32 {
	plane := img.Height * img.Width
	out := make([]float32, 3*plane)
	norm := *d.cfg.ImgNorm

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(y, x)
			bgr := [3]float64{float64(b), float64(g), float64(r)}
			p := y*img.Width + x
			for c := 0; c < 3; c++ {
				v := bgr[c] - d.mean[c]
				if norm {
					v /= 255.0
				}
				out[c*plane+p] = float32(v)
			}
		}
	}
	return out
}

// checkLabels returns ErrInvalidSegmentation when a value other than
// IgnoreIndex falls outside [0, NumClasses).
func checkLabels(lbl *images.LabelMap) error {
	for i, v := range lbl.Pix {
		if v == IgnoreIndex {
			continue
		}
		if v < 0 || v >= NumClasses {
			return errors.Wrapf(ErrInvalidSegmentation, "value %d at (%d, %d)", v, i/lbl.Width, i%lbl.Width)
		}
	}
	return nil
}
