package stats

import (
	"image/color"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
)

// PlotHistogram renders the class pixel shares as a bar chart, one bar per
// class in its palette color. The format follows the file extension
// (png, svg, pdf, ...).
func (r *Report) PlotHistogram(path string) error {
	p := plot.New()
	p.Title.Text = "Class pixel share"
	p.Y.Label.Text = "Share of pixels"

	classes := cityscapes.Classes()
	names := make([]string, len(classes))
	width := vg.Points(12)

	for i, class := range classes {
		names[i] = class.Name
		// One single-valued chart per class at its own x position so every
		// bar carries the class color.
		values := make(plotter.Values, len(classes))
		values[i] = r.Fraction(int(class.ID))
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return errors.Wrapf(err, "bar for %s", class.Name)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = color.RGBA{R: class.Color[0], G: class.Color[1], B: class.Color[2], A: 255}
		p.Add(bars)
	}
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -0.9

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", filepath.Base(path))
	}
	return nil
}
