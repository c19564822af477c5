// Package images - geometry-preserving resampling for paired image and label arrays.
package images

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/nfnt/resize"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter picks the closest source pixel. It is the only
	// filter allowed for label maps since class indices cannot be blended.
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation.
	BilinearFilter
	// BicubicFilter uses bicubic interpolation.
	BicubicFilter
	// LanczosFilter uses Lanczos resampling with a=3.
	LanczosFilter
)

// interpolation maps a continuous filter to its nfnt/resize counterpart.
var interpolation = map[ResampleFilter]resize.InterpolationFunction{
	BilinearFilter: resize.Bilinear,
	BicubicFilter:  resize.Bicubic,
	LanczosFilter:  resize.Lanczos3,
}

// ResizeRGB resamples an RGB array to the target size with a continuous filter.
//
// Arguments:
//   - src: The source array.
//   - size: The target (height, width).
//   - filter: The resampling filter. NearestNeighborFilter is routed to the
//     exact nearest-neighbor sampler instead of nfnt/resize, whose nearest
//     mode box-averages when downscaling.
//
// Returns:
//   - *RGB: A new array of the requested size.
//   - error: An error if the size is not positive or the filter is unknown.
//
// @example
// resized, err := ResizeRGB(img, Size{Height: 512, Width: 1024}, BilinearFilter)
func ResizeRGB(src *RGB, size Size, filter ResampleFilter) (*RGB, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid target size %s", size)
	}
	if src.Height == 0 || src.Width == 0 {
		return nil, fmt.Errorf("cannot resize empty %dx%d image", src.Height, src.Width)
	}

	if filter == NearestNeighborFilter {
		out := NewRGB(size.Height, size.Width)
		nearestIndex(src.Size(), size, func(dy, dx, sy, sx int) {
			r, g, b := src.At(sy, sx)
			out.Set(dy, dx, r, g, b)
		})
		return out, nil
	}

	interp, ok := interpolation[filter]
	if !ok {
		return nil, fmt.Errorf("unsupported resample filter: %d", filter)
	}

	resized := resize.Resize(uint(size.Width), uint(size.Height), src.Image(), interp)
	return RGBFromImage(resized), nil
}

// ResizeLabels resamples a label map with nearest-neighbor sampling.
//
// Every output value is copied from exactly one source pixel, so the set of
// output values is always a subset of the input values.
//
// Arguments:
//   - src: The source label map.
//   - size: The target (height, width).
//
// Returns:
//   - *LabelMap: A new map of the requested size.
//   - error: An error if the size is not positive.
func ResizeLabels(src *LabelMap, size Size) (*LabelMap, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid target size %s", size)
	}
	if src.Height == 0 || src.Width == 0 {
		return nil, fmt.Errorf("cannot resize empty %dx%d label map", src.Height, src.Width)
	}

	out := NewLabelMap(size.Height, size.Width)
	nearestIndex(src.Size(), size, func(dy, dx, sy, sx int) {
		out.Pix[dy*size.Width+dx] = src.Pix[sy*src.Width+sx]
	})
	return out, nil
}

// nearestIndex walks every destination pixel and hands fn the source pixel
// that covers its centre, using floor((d + 0.5) * ratio).
func nearestIndex(src, dst Size, fn func(dy, dx, sy, sx int)) {
	xRatio := float64(src.Width) / float64(dst.Width)
	yRatio := float64(src.Height) / float64(dst.Height)

	Parallel(dst.Height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			srcY := int((float64(y) + 0.5) * yRatio)
			if srcY >= src.Height {
				srcY = src.Height - 1
			}
			for x := 0; x < dst.Width; x++ {
				srcX := int((float64(x) + 0.5) * xRatio)
				if srcX >= src.Width {
					srcX = src.Width - 1
				}
				fn(y, x, srcY, srcX)
			}
		}
	})
}

// Clamp restricts value to the range [min, max].
//
// @example
// clamped := Clamp(300.5, 0, 255) // Returns 255
// clamped := Clamp(-10.0, 0, 255) // Returns 0
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel executes fn over contiguous partitions of [0, dataSize) across
// one goroutine per CPU. fn must only write to its own partition.
//
// Arguments:
//   - dataSize: The size of the data to process.
//   - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.NumCPU()

	// Small inputs are not worth the goroutine overhead.
	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}
