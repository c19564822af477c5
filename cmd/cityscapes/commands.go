package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/images"
	"github.com/nvr-ai/go-cityscapes/profiler"
	"github.com/nvr-ai/go-cityscapes/stats"
)

func runInfo(args []string) error {
	f := newDatasetFlags("info")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	ds, err := f.open()
	if err != nil {
		return err
	}
	return writeInfo(os.Stdout, ds)
}

func writeInfo(w io.Writer, ds *cityscapes.Dataset) error {
	cfg := ds.Config()
	fmt.Fprintf(w, "root:      %s\n", cfg.Root)
	fmt.Fprintf(w, "split:     %s\n", cfg.Split)
	fmt.Fprintf(w, "images:    %d\n", ds.Len())
	fmt.Fprintf(w, "transform: %t (size %s, norm %t)\n", cfg.IsTransform, cfg.ImgSize, *cfg.ImgNorm)
	fmt.Fprintf(w, "version:   %s %v\n", cfg.Version, ds.Mean())
	fmt.Fprintf(w, "unmapped:  %s\n", cfg.Unmapped)
	fmt.Fprintf(w, "classes:   %d (ignore index %d)\n", ds.NumClasses(), ds.IgnoreIndex())
	for _, c := range cityscapes.Classes() {
		fmt.Fprintf(w, "  %2d  code %2d  %-14s %v\n", c.ID, c.Code, c.Name, c.Color)
	}
	return nil
}

func runSample(args []string) error {
	f := newDatasetFlags("sample")
	index := f.fs.Int("index", 0, "Sample index")
	out := f.fs.String("out", ".", "Directory for the written PNG files")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	ds, err := f.open()
	if err != nil {
		return err
	}
	s, err := ds.Item(*index)
	if err != nil {
		return err
	}
	return writeSample(os.Stdout, *out, s)
}

// writeSample stores the sample image, its colorized label and its class ids
// under dir and prints a short description to w.
func writeSample(w io.Writer, dir string, s cityscapes.Sample) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	stem := strings.TrimSuffix(filepath.Base(s.ImagePath), cityscapes.ImageExtension)
	imgPath := filepath.Join(dir, stem+"_image.png")
	lblPath := filepath.Join(dir, stem+"_label.png")
	idsPath := filepath.Join(dir, stem+"_ids.png")

	if err := images.WritePNG(imgPath, s.Image.Image()); err != nil {
		return err
	}
	if err := images.WritePNG(lblPath, cityscapes.Colorize(s.Label).Image()); err != nil {
		return err
	}
	// Class ids as gray levels, 250 for ignored pixels.
	if err := images.WritePNG(idsPath, s.Label.Gray()); err != nil {
		return err
	}

	fmt.Fprintf(w, "index:    %d\n", s.Index)
	fmt.Fprintf(w, "image:    %s (%s, %s)\n", s.ImagePath, s.Image.Size(), images.Checksum(s.Image))
	fmt.Fprintf(w, "label:    %s (%s, %s)\n", s.LabelPath, s.Label.Size(), images.LabelChecksum(s.Label))
	fmt.Fprintf(w, "classes:  %v\n", s.Label.Unique())
	if s.Transformed() {
		fmt.Fprintf(w, "tensors:  %v %v, %v %v\n",
			s.ImageTensor.Shape(), s.ImageTensor.Dtype(), s.LabelTensor.Shape(), s.LabelTensor.Dtype())
	}
	fmt.Fprintf(w, "written:  %s, %s, %s\n", imgPath, lblPath, idsPath)
	return nil
}

func runStats(args []string) error {
	f := newDatasetFlags("stats")
	limit := f.fs.Int("limit", 0, "Read at most this many images, 0 for all")
	workers := f.fs.Int("workers", 4, "Concurrent reads")
	plot := f.fs.String("plot", "", "Write the class histogram to this file")
	register := f.fs.String("register", "", "Print the scanned mean as a profile under this name")
	quiet := f.fs.Bool("quiet", false, "Hide the progress bar")
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := f.resolve()
	if err != nil {
		return err
	}
	// Statistics are taken on the raw arrays.
	cfg.IsTransform = false
	ds, err := f.build(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timer := profiler.NewTimer()
	opts := stats.Options{Limit: *limit, Workers: *workers, Timer: timer}
	if !*quiet {
		opts.Progress = os.Stderr
	}
	report, err := stats.Compute(ctx, ds, opts)
	if err != nil {
		return err
	}
	if !*quiet {
		timer.Report(os.Stderr)
	}
	if err := report.WriteText(os.Stdout); err != nil {
		return err
	}

	if *plot != "" {
		if err := report.PlotHistogram(*plot); err != nil {
			return err
		}
		log.Printf("Histogram written to %s", *plot)
	}
	if *register != "" {
		if err := report.Register(*register); err != nil {
			return err
		}
		mean, err := cityscapes.MeanProfile(*register)
		if err != nil {
			return err
		}
		fmt.Printf("profile %s (bgr): %.3f %.3f %.3f\n", *register, mean[0], mean[1], mean[2])
	}
	return nil
}

func runServe(args []string) error {
	f := newDatasetFlags("serve")
	addr := f.fs.String("addr", "0.0.0.0:8093", "Listen address")
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	ds, err := f.open()
	if err != nil {
		return err
	}
	return serve(*addr, ds)
}
