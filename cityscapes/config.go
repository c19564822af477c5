package cityscapes

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-cityscapes/images"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultSplit   = "train"
	DefaultVersion = VersionCityscapes
	DefaultImgSize = 256
)

// Config defines how a Dataset is built.
type Config struct {
	// Root is the dataset root holding leftImg8bit/ and gtFine/.
	Root string `json:"root" yaml:"root"`
	// Split is the partition to scan, e.g. train, val or test. It is only
	// used as a path segment.
	Split string `json:"split" yaml:"split"`
	// IsTransform enables resize and normalization in Item.
	IsTransform bool `json:"is_transform" yaml:"is_transform"`
	// ImgSize is the transform target size.
	ImgSize images.Size `json:"img_size" yaml:"img_size"`
	// ImgNorm divides the mean-subtracted image by 255. Nil means true.
	ImgNorm *bool `json:"img_norm,omitempty" yaml:"img_norm,omitempty"`
	// Version selects the mean profile.
	Version string `json:"version" yaml:"version"`
	// TestMode is carried for collaborators; the dataset never reads it.
	TestMode bool `json:"test_mode" yaml:"test_mode"`
	// Unmapped decides how codes outside the void and valid sets are encoded.
	Unmapped UnmappedPolicy `json:"unmapped" yaml:"unmapped"`
}

// Bool returns a pointer to v, for Config.ImgNorm.
func Bool(v bool) *bool {
	return &v
}

// DefaultConfig returns the default configuration for root.
func DefaultConfig(root string) Config {
	return Config{Root: root}.WithDefaults()
}

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.Split == "" {
		c.Split = DefaultSplit
	}
	if c.ImgSize == (images.Size{}) {
		c.ImgSize = images.Square(DefaultImgSize)
	}
	if c.ImgNorm == nil {
		c.ImgNorm = Bool(true)
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Unmapped == "" {
		c.Unmapped = UnmappedPassthrough
	}
	return c
}

// Validate checks a configuration after defaults are applied.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.Wrap(ErrInvalidConfig, "root is required")
	}
	if !c.ImgSize.Valid() {
		return errors.Wrapf(ErrInvalidConfig, "img_size %s must be positive", c.ImgSize)
	}
	if !c.Unmapped.Valid() {
		return errors.Wrapf(ErrInvalidConfig, "unmapped policy %q", c.Unmapped)
	}
	if _, err := MeanProfile(c.Version); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Defaults are not applied.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrInvalidConfig, "parse config %s: %v", path, err)
	}
	return cfg, nil
}
