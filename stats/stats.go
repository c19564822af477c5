// Package stats scans a split and reports its class pixel histogram and
// per-channel image statistics.
package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/images"
	"github.com/nvr-ai/go-cityscapes/loader"
	"github.com/nvr-ai/go-cityscapes/profiler"
)

// Options controls a scan.
type Options struct {
	// Limit caps the number of images read. Zero reads the whole split.
	Limit int
	// Workers is the number of concurrent reads. Defaults to 1.
	Workers int
	// Progress receives a progress bar when set.
	Progress io.Writer
	// Timer, when set, records sample reads and per-sample accumulation.
	Timer *profiler.Timer
}

// Report holds the statistics of one scan.
type Report struct {
	Images int
	Pixels int64
	// ClassPixels counts label pixels per compact class id.
	ClassPixels [cityscapes.NumClasses]int64
	// IgnorePixels counts pixels labelled IgnoreIndex.
	IgnorePixels int64
	// Unmapped counts pixels per raw code that passed through encoding.
	Unmapped map[int32]int64
	// Mean and Std are the per-channel pixel mean and population standard
	// deviation on the 0-255 scale, in RGB order.
	Mean [3]float64
	Std  [3]float64
}

// limited truncates a source to its first n samples.
type limited struct {
	loader.Source
	n int
}

func (l limited) Len() int {
	return l.n
}

// Compute scans src, which must return untransformed samples, and gathers
// a Report.
//
// Arguments:
//   - ctx: Stops the scan between batches.
//   - src: The samples to scan, usually a *cityscapes.Dataset.
//   - opts: Scan options.
//
// Returns:
//   - *Report: The gathered statistics.
//   - error: The first read error, or an error for transformed samples.
func Compute(ctx context.Context, src loader.Source, opts Options) (*Report, error) {
	if opts.Limit > 0 && opts.Limit < src.Len() {
		src = limited{Source: src, n: opts.Limit}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	l, err := loader.New(src, loader.Config{BatchSize: workers, Workers: workers, Timer: opts.Timer})
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(src.Len(),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
		)
	}

	report := &Report{Unmapped: make(map[int32]int64)}
	var means, vars [3][]float64
	var weights []float64

	err = l.Batches(ctx, 0, func(b loader.Batch) error {
		for _, s := range b.Samples {
			if s.Image == nil || s.Label == nil {
				return errors.Errorf("sample %d has no raw arrays", s.Index)
			}
			done := opts.Timer.StartOperation("accumulate")
			report.addLabels(s.Label)

			m, v := channelMoments(s.Image)
			for c := 0; c < 3; c++ {
				means[c] = append(means[c], m[c])
				vars[c] = append(vars[c], v[c])
			}
			weights = append(weights, float64(len(s.Image.Pix)/3))
			report.Images++
			done()
		}
		if bar != nil {
			return bar.Add(len(b.Samples))
		}
		return nil
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	if report.Images > 0 {
		for c := 0; c < 3; c++ {
			report.Mean[c], report.Std[c] = pooled(means[c], vars[c], weights)
		}
	}
	return report, nil
}

func (r *Report) addLabels(lbl *images.LabelMap) {
	for _, v := range lbl.Pix {
		switch {
		case v == cityscapes.IgnoreIndex:
			r.IgnorePixels++
		case v >= 0 && v < cityscapes.NumClasses:
			r.ClassPixels[v]++
		default:
			r.Unmapped[v]++
		}
	}
	r.Pixels += int64(len(lbl.Pix))
}

// channelMoments returns the per-channel population mean and variance of img.
func channelMoments(img *images.RGB) (mean, variance [3]float64) {
	n := len(img.Pix) / 3
	if n == 0 {
		return mean, variance
	}
	values := make([]float64, n)
	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			values[i] = float64(img.Pix[3*i+c])
		}
		mean[c], variance[c] = stat.PopMeanVariance(values, nil)
	}
	return mean, variance
}

// pooled combines per-image moments into the moments of all pixels.
func pooled(means, vars, weights []float64) (mean, std float64) {
	mean = stat.Mean(means, weights)
	total := make([]float64, len(means))
	for i := range means {
		d := means[i] - mean
		total[i] = vars[i] + d*d
	}
	variance := stat.Mean(total, weights)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// Profile returns the scanned mean in the BGR order mean profiles use.
func (r *Report) Profile() [3]float64 {
	return [3]float64{r.Mean[2], r.Mean[1], r.Mean[0]}
}

// Register stores the scanned mean as a mean profile under name.
func (r *Report) Register(name string) error {
	return cityscapes.RegisterMeanProfile(name, r.Profile())
}

// Fraction returns the share of labelled pixels that belong to class id.
func (r *Report) Fraction(id int) float64 {
	if r.Pixels == 0 || id < 0 || id >= cityscapes.NumClasses {
		return 0
	}
	return float64(r.ClassPixels[id]) / float64(r.Pixels)
}

// UnmappedCodes returns the passthrough codes seen, in ascending order.
func (r *Report) UnmappedCodes() []int32 {
	codes := make([]int32, 0, len(r.Unmapped))
	for c := range r.Unmapped {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// WriteText prints the report as an aligned table.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "images\t%d\n", r.Images)
	fmt.Fprintf(tw, "pixels\t%d\n", r.Pixels)
	fmt.Fprintf(tw, "mean (rgb)\t%.3f\t%.3f\t%.3f\n", r.Mean[0], r.Mean[1], r.Mean[2])
	fmt.Fprintf(tw, "std (rgb)\t%.3f\t%.3f\t%.3f\n", r.Std[0], r.Std[1], r.Std[2])
	fmt.Fprintln(tw, "id\tclass\tpixels\tshare")
	for _, class := range cityscapes.Classes() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.4f\n", class.ID, class.Name, r.ClassPixels[class.ID], r.Fraction(int(class.ID)))
	}
	fmt.Fprintf(tw, "%d\tignore\t%d\t\n", cityscapes.IgnoreIndex, r.IgnorePixels)
	for _, code := range r.UnmappedCodes() {
		fmt.Fprintf(tw, "raw %d\tunmapped\t%d\t\n", code, r.Unmapped[code])
	}
	return tw.Flush()
}
