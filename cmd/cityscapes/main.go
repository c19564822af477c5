// Command cityscapes inspects, samples, profiles and serves a Cityscapes
// fine-annotation tree.
//
// Usage:
//
//	cityscapes <info|sample|stats|serve> [flags]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/images"
	"github.com/nvr-ai/go-cityscapes/images/cv"
)

// Codec names accepted by -codec.
const (
	CodecPNG    = "png"
	CodecOpenCV = "opencv"
)

// command is one CLI verb.
type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"info", "print the dataset configuration, size and class catalog", runInfo},
	{"sample", "write one sample as PNG files and print its checksums", runSample},
	{"stats", "scan a split for class shares and channel statistics", runStats},
	{"serve", "serve samples over HTTP", runServe},
}

func main() {
	log.SetFlags(log.LstdFlags)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(os.Args[2:]); err != nil {
				log.Fatalf("%s: %v", c.name, err)
			}
			return
		}
	}
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cityscapes <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
}

// datasetFlags are shared by every command. Flags that are set override
// the values read from -config.
type datasetFlags struct {
	fs        *flag.FlagSet
	config    string
	root      string
	split     string
	size      string
	version   string
	unmapped  string
	codec     string
	transform bool
	norm      bool
}

func newDatasetFlags(name string) *datasetFlags {
	f := &datasetFlags{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	f.fs.StringVar(&f.config, "config", "", "Path to a YAML dataset configuration")
	f.fs.StringVar(&f.root, "root", "", "Dataset root holding leftImg8bit/ and gtFine/")
	f.fs.StringVar(&f.split, "split", cityscapes.DefaultSplit, "Split to read")
	f.fs.StringVar(&f.size, "size", strconv.Itoa(cityscapes.DefaultImgSize), "Transform size, N or HxW")
	f.fs.StringVar(&f.version, "version", cityscapes.DefaultVersion, "Mean profile")
	f.fs.StringVar(&f.unmapped, "unmapped", string(cityscapes.UnmappedPassthrough), "Unmapped code policy: passthrough, ignore or error")
	f.fs.StringVar(&f.codec, "codec", CodecPNG, "Codec: png or opencv")
	f.fs.BoolVar(&f.transform, "transform", false, "Resize and normalize samples")
	f.fs.BoolVar(&f.norm, "norm", true, "Divide normalized pixels by 255")
	return f
}

// parseSize reads "N" or "HxW".
func parseSize(s string) (images.Size, error) {
	if h, w, ok := strings.Cut(s, "x"); ok {
		height, err := strconv.Atoi(h)
		if err != nil {
			return images.Size{}, errors.Wrapf(err, "size height %q", h)
		}
		width, err := strconv.Atoi(w)
		if err != nil {
			return images.Size{}, errors.Wrapf(err, "size width %q", w)
		}
		return images.Size{Height: height, Width: width}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return images.Size{}, errors.Wrapf(err, "size %q", s)
	}
	return images.Square(n), nil
}

// resolve merges the configuration file with the flags that were set.
func (f *datasetFlags) resolve() (cityscapes.Config, error) {
	var cfg cityscapes.Config
	if f.config != "" {
		loaded, err := cityscapes.LoadConfig(f.config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	override := func(name string) bool { return f.config == "" || set[name] }

	if override("root") {
		cfg.Root = f.root
	}
	if override("split") {
		cfg.Split = f.split
	}
	if override("size") {
		size, err := parseSize(f.size)
		if err != nil {
			return cfg, err
		}
		cfg.ImgSize = size
	}
	if override("version") {
		cfg.Version = f.version
	}
	if override("unmapped") {
		cfg.Unmapped = cityscapes.UnmappedPolicy(f.unmapped)
	}
	if override("transform") {
		cfg.IsTransform = f.transform
	}
	if override("norm") {
		cfg.ImgNorm = cityscapes.Bool(f.norm)
	}
	return cfg, nil
}

// codecByName returns the codec selected by -codec.
func codecByName(name string) (images.Codec, error) {
	switch name {
	case CodecPNG:
		return images.NewPNGCodec(), nil
	case CodecOpenCV:
		return cv.NewCodec(), nil
	default:
		return nil, errors.Errorf("unknown codec %q", name)
	}
}

// open builds the dataset described by the flags.
func (f *datasetFlags) open() (*cityscapes.Dataset, error) {
	cfg, err := f.resolve()
	if err != nil {
		return nil, err
	}
	return f.build(cfg)
}

// build creates a dataset for cfg using the -codec codec.
func (f *datasetFlags) build(cfg cityscapes.Config) (*cityscapes.Dataset, error) {
	codec, err := codecByName(f.codec)
	if err != nil {
		return nil, err
	}
	return cityscapes.New(cfg, cityscapes.WithCodec(codec))
}
