package cityscapes

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-cityscapes/images"
)

// Directory layout and file naming of the fine-annotation release.
const (
	ImagesDir       = "leftImg8bit"
	AnnotationsDir  = "gtFine"
	ImageExtension  = ".png"
	LabelSuffix     = "gtFine_labelIds.png"
	imageSuffixSize = len("leftImg8bit.png")
)

// Augmentation transforms a decoded, encoded sample before the resize and
// normalize step. Its output is used as-is.
type Augmentation func(img *images.RGB, lbl *images.LabelMap) (*images.RGB, *images.LabelMap, error)

// Sample is one retrieved (image, label) pair.
type Sample struct {
	// Index is the dataset index the sample was read from.
	Index int
	// ImagePath is the source image file.
	ImagePath string
	// LabelPath is the derived annotation file.
	LabelPath string
	// Image holds the decoded (and augmented) pixels.
	Image *images.RGB
	// Label holds the encoded (and augmented) label map.
	Label *images.LabelMap
	// ImageTensor is the Float32 (3, H, W) BGR image. Set only when the
	// transform is enabled.
	ImageTensor *tensor.Dense
	// LabelTensor is the Int64 (H, W) label. Set only when the transform
	// is enabled.
	LabelTensor *tensor.Dense
}

// Transformed reports whether the sample carries model-ready tensors.
func (s Sample) Transformed() bool {
	return s.ImageTensor != nil && s.LabelTensor != nil
}

// Dataset is a read-only view over one split of a Cityscapes tree.
//
// All state is fixed by New; every method is safe for concurrent use.
type Dataset struct {
	cfg             Config
	imagesBase      string
	annotationsBase string
	files           []string
	mapping         *Mapping
	mean            [3]float64
	codec           images.Codec
	augment         Augmentation
	logger          *log.Logger
}

// Option configures optional collaborators of a Dataset.
type Option func(*Dataset)

// WithAugmentation installs an augmentation run on every retrieved sample.
func WithAugmentation(a Augmentation) Option {
	return func(d *Dataset) {
		d.augment = a
	}
}

// WithCodec replaces the default pure Go PNG codec.
func WithCodec(c images.Codec) Option {
	return func(d *Dataset) {
		if c != nil {
			d.codec = c
		}
	}
}

// WithLogger sets the logger used for construction notices.
func WithLogger(l *log.Logger) Option {
	return func(d *Dataset) {
		if l != nil {
			d.logger = l
		}
	}
}

// New builds a dataset for cfg.Split under cfg.Root.
//
// It enumerates every file under <root>/leftImg8bit/<split>/ whose name ends
// in .png, recursively and in lexical order. The list is a snapshot: later
// filesystem changes do not affect Len or index resolution.
//
// Arguments:
//   - cfg: The dataset configuration. Zero fields take their defaults.
//   - opts: Optional collaborators.
//
// Returns:
//   - *Dataset: The dataset.
//   - error: ErrInvalidConfig or ErrUnknownVersion for a bad configuration,
//     ErrDatasetEmpty when no image is found.
//
// @example
//
//	ds, err := cityscapes.New(cityscapes.Config{
//	    Root:        "/data/cityscapes",
//	    Split:       "val",
//	    IsTransform: true,
//	    ImgSize:     images.Size{Height: 512, Width: 1024},
//	})
func New(cfg Config, opts ...Option) (*Dataset, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mapping, err := NewMapping(cfg.Unmapped)
	if err != nil {
		return nil, err
	}
	mean, err := MeanProfile(cfg.Version)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		cfg:             cfg,
		imagesBase:      filepath.Join(cfg.Root, ImagesDir, cfg.Split),
		annotationsBase: filepath.Join(cfg.Root, AnnotationsDir, cfg.Split),
		mapping:         mapping,
		mean:            mean,
		codec:           images.NewPNGCodec(),
		logger:          log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	files, err := discover(d.imagesBase)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(ErrDatasetEmpty, "split=[%s] in %s", cfg.Split, d.imagesBase)
	}
	d.files = files

	d.logger.Printf("Found %d %s images", len(files), cfg.Split)
	return d, nil
}

// discover lists image files under base. A missing base directory yields
// an empty list.
func discover(base string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == base && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ImageExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", base)
	}
	sort.Strings(files)
	return files, nil
}

// Len returns the number of images found at construction.
func (d *Dataset) Len() int {
	return len(d.files)
}

// Paths returns a copy of the enumerated image paths.
func (d *Dataset) Paths() []string {
	out := make([]string, len(d.files))
	copy(out, d.files)
	return out
}

// ImagePath returns the image path at index.
func (d *Dataset) ImagePath(index int) (string, error) {
	if index < 0 || index >= len(d.files) {
		return "", errors.Wrapf(ErrIndexOutOfRange, "index %d, len %d", index, len(d.files))
	}
	return d.files[index], nil
}

// LabelPath derives the annotation path of an image path:
// <root>/gtFine/<split>/<parent dir>/<name without the trailing
// "leftImg8bit.png">gtFine_labelIds.png.
func (d *Dataset) LabelPath(imagePath string) (string, error) {
	base := filepath.Base(imagePath)
	if len(base) < imageSuffixSize {
		return "", errors.Wrapf(ErrPathDerivation, "image name %q is shorter than %d characters", base, imageSuffixSize)
	}
	city := filepath.Base(filepath.Dir(imagePath))
	return filepath.Join(d.annotationsBase, city, base[:len(base)-imageSuffixSize]+LabelSuffix), nil
}

// Item reads, encodes and optionally augments and transforms the sample at
// index.
//
// Arguments:
//   - index: A dataset index in [0, Len()).
//
// Returns:
//   - Sample: The retrieved sample.
//   - error: ErrIndexOutOfRange, ErrPathDerivation, ErrFileDecode,
//     ErrUnmappedCode or ErrInvalidSegmentation. File failures are a
//     *FileError that also unwraps to the I/O or decode cause.
func (d *Dataset) Item(index int) (Sample, error) {
	imgPath, err := d.ImagePath(index)
	if err != nil {
		return Sample{}, err
	}
	lblPath, err := d.LabelPath(imgPath)
	if err != nil {
		return Sample{}, err
	}
	if _, err := os.Stat(lblPath); err != nil {
		return Sample{}, &FileError{Kind: ErrPathDerivation, Role: "label", Path: lblPath, Err: err}
	}

	img, err := d.codec.DecodeRGB(imgPath)
	if err != nil {
		return Sample{}, &FileError{Kind: ErrFileDecode, Role: "image", Path: imgPath, Err: err}
	}
	raw, err := d.codec.DecodeLabel(lblPath)
	if err != nil {
		return Sample{}, &FileError{Kind: ErrFileDecode, Role: "label", Path: lblPath, Err: err}
	}
	lbl, err := d.EncodeSegmap(raw)
	if err != nil {
		return Sample{}, errors.WithMessagef(err, "encode %s", lblPath)
	}

	if d.augment != nil {
		img, lbl, err = d.augment(img, lbl)
		if err != nil {
			return Sample{}, errors.Wrapf(err, "augment sample %d", index)
		}
	}

	s := Sample{
		Index:     index,
		ImagePath: imgPath,
		LabelPath: lblPath,
		Image:     img,
		Label:     lbl,
	}
	if d.cfg.IsTransform {
		s.ImageTensor, s.LabelTensor, err = d.Transform(img, lbl)
		if err != nil {
			return Sample{}, errors.WithMessagef(err, "transform sample %d", index)
		}
	}
	return s, nil
}

// EncodeSegmap maps raw annotation codes to compact class ids.
func (d *Dataset) EncodeSegmap(mask *images.LabelMap) (*images.LabelMap, error) {
	return d.mapping.Encode(mask)
}

// DecodeSegmap paints an encoded label map with the class palette.
func (d *Dataset) DecodeSegmap(labels *images.LabelMap) *images.Float3 {
	return DecodeSegmap(labels)
}

// UnmappedCodes reports raw codes of mask outside the void and valid sets.
func (d *Dataset) UnmappedCodes(mask *images.LabelMap) []int32 {
	return d.mapping.UnmappedCodes(mask)
}

// Config returns the effective configuration.
func (d *Dataset) Config() Config {
	c := d.cfg
	c.ImgNorm = Bool(*d.cfg.ImgNorm)
	return c
}

// Split returns the split name.
func (d *Dataset) Split() string {
	return d.cfg.Split
}

// NumClasses returns the number of trainable classes.
func (d *Dataset) NumClasses() int {
	return NumClasses
}

// IgnoreIndex returns the ignore sentinel.
func (d *Dataset) IgnoreIndex() int32 {
	return IgnoreIndex
}

// Mean returns the per-channel mean subtracted by Transform.
func (d *Dataset) Mean() [3]float64 {
	return d.mean
}

// TestMode returns the configured test-mode flag.
func (d *Dataset) TestMode() bool {
	return d.cfg.TestMode
}
