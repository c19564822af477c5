package loader

import (
	"context"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/images"
	"github.com/nvr-ai/go-cityscapes/profiler"
)

// fakeSource returns 2x2 transformed samples whose pixels carry the index.
type fakeSource struct {
	n       int
	fail    map[int]error
	delay   time.Duration
	active  int32
	peak    int32
	mu      sync.Mutex
	fetched []int
}

func (f *fakeSource) Len() int { return f.n }

func (f *fakeSource) Item(index int) (cityscapes.Sample, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, index)
	f.mu.Unlock()

	if err := f.fail[index]; err != nil {
		return cityscapes.Sample{}, err
	}
	data := make([]float32, 12)
	for i := range data {
		data[i] = float32(index)
	}
	img, err := images.NewCHWTensor(data, 2, 2)
	if err != nil {
		return cityscapes.Sample{}, err
	}
	return cityscapes.Sample{
		Index:       index,
		ImageTensor: img,
		LabelTensor: images.LabelTensor(images.NewLabelMapFilled(2, 2, int32(index%19))),
	}, nil
}

func TestNewDefaults(t *testing.T) {
	l, err := New(&fakeSource{n: 5}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 5, l.NumBatches())

	_, err = New(nil, Config{})
	assert.Error(t, err)
	_, err = New(&fakeSource{n: 1}, Config{Workers: -1})
	assert.Error(t, err)
}

func TestLoadKeepsOrderAndBoundsWorkers(t *testing.T) {
	src := &fakeSource{n: 40, delay: 2 * time.Millisecond}
	timer := profiler.NewTimer()
	l, err := New(src, Config{Workers: 4, Timer: timer})
	require.NoError(t, err)

	indices := []int{39, 0, 17, 3, 3, 22, 8, 31, 12, 5, 1, 2}
	samples, err := l.Load(context.Background(), indices)
	require.NoError(t, err)
	require.Len(t, samples, len(indices))
	for i, s := range samples {
		assert.Equal(t, indices[i], s.Index)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(4))
	assert.Greater(t, atomic.LoadInt32(&src.peak), int32(1), "fetches should overlap")

	timings := timer.Stats()
	require.Len(t, timings, 1)
	assert.Equal(t, "item", timings[0].Name)
	assert.Equal(t, int64(len(indices)), timings[0].Count)
	assert.GreaterOrEqual(t, timings[0].Min, 2*time.Millisecond)
}

func TestLoadPropagatesItemError(t *testing.T) {
	src := &fakeSource{n: 10, fail: map[int]error{6: cityscapes.ErrFileDecode}}
	l, err := New(src, Config{Workers: 3})
	require.NoError(t, err)

	_, err = l.Load(context.Background(), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cityscapes.ErrFileDecode))
	assert.Contains(t, err.Error(), "item 6")
}

func TestLoadCancelled(t *testing.T) {
	src := &fakeSource{n: 10}
	l, err := New(src, Config{Workers: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, []int{0, 1, 2})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, src.fetched)
}

func TestOrder(t *testing.T) {
	l, err := New(&fakeSource{n: 25}, Config{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, l.Order(3)[:5])

	s, err := New(&fakeSource{n: 25}, Config{Shuffle: true, Seed: 7})
	require.NoError(t, err)
	first := s.Order(0)
	assert.Equal(t, first, s.Order(0), "same epoch, same order")
	assert.NotEqual(t, first, s.Order(1))

	sorted := append([]int(nil), first...)
	sort.Ints(sorted)
	assert.Equal(t, l.Order(0), sorted, "a shuffle is a permutation")
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name     string
		dropLast bool
		want     [][]int
	}{
		{"keep last", false, [][]int{{0, 1, 2}, {3, 4, 5}, {6}}},
		{"drop last", true, [][]int{{0, 1, 2}, {3, 4, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(&fakeSource{n: 7}, Config{BatchSize: 3, Workers: 2, DropLast: tt.dropLast})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), l.NumBatches())

			var got [][]int
			err = l.Batches(context.Background(), 0, func(b Batch) error {
				assert.Equal(t, len(got), b.Number)
				for i, s := range b.Samples {
					assert.Equal(t, b.Indices[i], s.Index)
				}
				got = append(got, append([]int(nil), b.Indices...))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchesStopsOnCallbackError(t *testing.T) {
	l, err := New(&fakeSource{n: 9}, Config{BatchSize: 2})
	require.NoError(t, err)

	calls := 0
	stop := errors.New("stop")
	err = l.Batches(context.Background(), 0, func(Batch) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 2, calls)
}

func TestStack(t *testing.T) {
	src := &fakeSource{n: 3}
	l, err := New(src, Config{Workers: 3})
	require.NoError(t, err)
	samples, err := l.Load(context.Background(), []int{2, 0, 1})
	require.NoError(t, err)

	imgs, lbls, err := Stack(samples)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 3, 2, 2}, imgs.Shape())
	assert.Equal(t, tensor.Shape{3, 2, 2}, lbls.Shape())

	data := imgs.Data().([]float32)
	assert.Equal(t, float32(2), data[0])
	assert.Equal(t, float32(0), data[12])
	assert.Equal(t, float32(1), data[24])
	assert.Equal(t, int64(1), lbls.Data().([]int64)[8])

	_, _, err = Stack(nil)
	assert.Error(t, err)
	_, _, err = Stack([]cityscapes.Sample{{Index: 4}})
	assert.Error(t, err, "untransformed samples cannot be stacked")
}

func TestLoaderOverDataset(t *testing.T) {
	root := t.TempDir()
	for i, city := range []string{"aachen", "bochum", "bremen", "cologne"} {
		imgDir := filepath.Join(root, cityscapes.ImagesDir, "train", city)
		lblDir := filepath.Join(root, cityscapes.AnnotationsDir, "train", city)
		require.NoError(t, os.MkdirAll(imgDir, 0o755))
		require.NoError(t, os.MkdirAll(lblDir, 0o755))

		img := image.NewRGBA(image.Rect(0, 0, 6, 4))
		lbl := image.NewGray(image.Rect(0, 0, 6, 4))
		for y := 0; y < 4; y++ {
			for x := 0; x < 6; x++ {
				img.SetRGBA(x, y, color.RGBA{R: uint8(40 * i), A: 255})
				lbl.SetGray(x, y, color.Gray{Y: 26})
			}
		}
		stem := city + "_000000_000019_"
		require.NoError(t, images.WritePNG(filepath.Join(imgDir, stem+"leftImg8bit.png"), img))
		require.NoError(t, images.WritePNG(filepath.Join(lblDir, stem+cityscapes.LabelSuffix), lbl))
	}

	ds, err := cityscapes.New(cityscapes.Config{Root: root, IsTransform: true, ImgSize: images.Square(4)},
		cityscapes.WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)

	l, err := New(ds, Config{BatchSize: 4, Workers: 4})
	require.NoError(t, err)
	err = l.Batches(context.Background(), 0, func(b Batch) error {
		imgs, lbls, err := Stack(b.Samples)
		if err != nil {
			return err
		}
		assert.Equal(t, tensor.Shape{4, 3, 4, 4}, imgs.Shape())
		for _, v := range lbls.Data().([]int64) {
			assert.Equal(t, int64(13), v, "every pixel is car")
		}
		return nil
	})
	require.NoError(t, err)
}
