package images

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Size is a target (height, width) pair.
//
// In YAML a size is written either as a single integer, meaning a square,
// or as a two element [height, width] sequence.
type Size struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

// Square returns a size with equal height and width.
func Square(n int) Size {
	return Size{Height: n, Width: n}
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Height > 0 && s.Width > 0
}

// String formats the size as HxW.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// UnmarshalYAML accepts an int, a [h, w] pair or a {height, width} mapping.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("size: %w", err)
		}
		*s = Square(n)
		return nil
	case yaml.SequenceNode:
		var pair []int
		if err := node.Decode(&pair); err != nil {
			return fmt.Errorf("size: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("size: want [height, width], got %d values", len(pair))
		}
		*s = Size{Height: pair[0], Width: pair[1]}
		return nil
	case yaml.MappingNode:
		type plain Size
		var p plain
		if err := node.Decode(&p); err != nil {
			return fmt.Errorf("size: %w", err)
		}
		*s = Size(p)
		return nil
	default:
		return fmt.Errorf("size: unsupported yaml node kind %v", node.Kind)
	}
}
