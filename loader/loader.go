// Package loader feeds dataset samples to a training loop in batches,
// fetching the samples of each batch from a bounded pool of goroutines.
package loader

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/profiler"
)

// Source is an indexable collection of samples. *cityscapes.Dataset
// satisfies it.
type Source interface {
	Len() int
	Item(index int) (cityscapes.Sample, error)
}

// Config holds configuration for a Loader.
type Config struct {
	// BatchSize is the number of samples per batch. Defaults to 1.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// Workers bounds the number of concurrent Item calls. Defaults to 1.
	Workers int `json:"workers" yaml:"workers"`
	// Shuffle permutes the index order every epoch.
	Shuffle bool `json:"shuffle" yaml:"shuffle"`
	// Seed makes shuffled orders reproducible. Epoch e uses Seed+e.
	Seed int64 `json:"seed" yaml:"seed"`
	// DropLast skips a trailing batch smaller than BatchSize.
	DropLast bool `json:"drop_last" yaml:"drop_last"`
	// Timer receives the duration of every Item call under "item".
	Timer *profiler.Timer `json:"-" yaml:"-"`
}

// Batch is one group of samples in index order of the epoch.
type Batch struct {
	// Number is the position of the batch within its epoch.
	Number int
	// Indices are the dataset indices of Samples.
	Indices []int
	Samples []cityscapes.Sample
}

// Loader reads batches from a Source.
type Loader struct {
	src Source
	cfg Config
}

// New returns a loader over src.
func New(src Source, cfg Config) (*Loader, error) {
	if src == nil {
		return nil, errors.New("loader needs a source")
	}
	if cfg.BatchSize < 0 || cfg.Workers < 0 {
		return nil, errors.Errorf("batch size %d and workers %d must not be negative", cfg.BatchSize, cfg.Workers)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	return &Loader{src: src, cfg: cfg}, nil
}

// NumBatches returns the number of batches in one epoch.
func (l *Loader) NumBatches() int {
	n := l.src.Len()
	if l.cfg.DropLast {
		return n / l.cfg.BatchSize
	}
	return (n + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Order returns the index order of epoch.
func (l *Loader) Order(epoch int) []int {
	n := l.src.Len()
	if l.cfg.Shuffle {
		return rand.New(rand.NewSource(l.cfg.Seed + int64(epoch))).Perm(n)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// Load fetches the samples at indices concurrently and returns them in the
// same order. The first failing Item cancels the remaining fetches.
//
// Arguments:
//   - ctx: Cancels fetches that have not started yet.
//   - indices: Dataset indices to read.
//
// Returns:
//   - []cityscapes.Sample: One sample per index.
//   - error: The first Item error, or the context error.
func (l *Loader) Load(ctx context.Context, indices []int) ([]cityscapes.Sample, error) {
	out := make([]cityscapes.Sample, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i, idx := range indices {
		if gctx.Err() != nil {
			break
		}
		i, idx := i, idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			done := l.cfg.Timer.StartOperation("item")
			s, err := l.src.Item(idx)
			done()
			if err != nil {
				return errors.WithMessagef(err, "item %d", idx)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Batches walks one epoch and calls fn for each batch, in order. Iteration
// stops at the first error from Load or fn.
//
// @example
//
//	err := l.Batches(ctx, epoch, func(b loader.Batch) error {
//	    images, labels, err := loader.Stack(b.Samples)
//	    if err != nil {
//	        return err
//	    }
//	    return step(images, labels)
//	})
func (l *Loader) Batches(ctx context.Context, epoch int, fn func(Batch) error) error {
	order := l.Order(epoch)
	size := l.cfg.BatchSize

	for number, start := 0, 0; start < len(order); number, start = number+1, start+size {
		end := start + size
		if end > len(order) {
			if l.cfg.DropLast {
				break
			}
			end = len(order)
		}
		indices := order[start:end]

		samples, err := l.Load(ctx, indices)
		if err != nil {
			return errors.WithMessagef(err, "batch %d", number)
		}
		if err := fn(Batch{Number: number, Indices: indices, Samples: samples}); err != nil {
			return err
		}
	}
	return nil
}

// Stack joins the tensors of transformed samples into an (N, 3, H, W)
// Float32 image batch and an (N, H, W) Int64 label batch.
func Stack(samples []cityscapes.Sample) (*tensor.Dense, *tensor.Dense, error) {
	if len(samples) == 0 {
		return nil, nil, errors.New("stack needs at least one sample")
	}
	for i, s := range samples {
		if !s.Transformed() {
			return nil, nil, errors.Errorf("sample %d (index %d) is not transformed", i, s.Index)
		}
	}

	imgShape := samples[0].ImageTensor.Shape().Clone()
	lblShape := samples[0].LabelTensor.Shape().Clone()
	imgData := make([]float32, 0, len(samples)*imgShape.TotalSize())
	lblData := make([]int64, 0, len(samples)*lblShape.TotalSize())

	for i, s := range samples {
		if !s.ImageTensor.Shape().Eq(imgShape) || !s.LabelTensor.Shape().Eq(lblShape) {
			return nil, nil, errors.Errorf("sample %d has shapes %v and %v, want %v and %v",
				i, s.ImageTensor.Shape(), s.LabelTensor.Shape(), imgShape, lblShape)
		}
		img, ok := s.ImageTensor.Data().([]float32)
		if !ok {
			return nil, nil, errors.Errorf("sample %d image dtype %v", i, s.ImageTensor.Dtype())
		}
		lbl, ok := s.LabelTensor.Data().([]int64)
		if !ok {
			return nil, nil, errors.Errorf("sample %d label dtype %v", i, s.LabelTensor.Dtype())
		}
		imgData = append(imgData, img...)
		lblData = append(lblData, lbl...)
	}

	images := tensor.New(tensor.WithShape(append(tensor.Shape{len(samples)}, imgShape...)...), tensor.WithBacking(imgData))
	labels := tensor.New(tensor.WithShape(append(tensor.Shape{len(samples)}, lblShape...)...), tensor.WithBacking(lblData))
	return images, labels, nil
}
