// Package cityscapes - dataset adapter for the Cityscapes fine-annotation
// semantic segmentation benchmark.
//
// A Dataset enumerates the images of one split, pairs each with its
// gtFine labelIds annotation, remaps raw annotation codes to a compact
// 19-class training space and optionally resizes and normalizes both arrays
// into model-ready tensors.
package cityscapes

import "github.com/pkg/errors"

const (
	// NumClasses is the number of trainable classes.
	NumClasses = 19
	// IgnoreIndex marks pixels excluded from loss and accuracy computation.
	IgnoreIndex int32 = 250
)

// ClassNames lists the category names in catalog order. Entry 0 is the
// "unlabelled" placeholder; compact class id i is named ClassNames[i+1].
var ClassNames = [NumClasses + 1]string{
	"unlabelled",
	"road", "sidewalk", "building",
	"wall", "fence", "pole", "traffic_light",
	"traffic_sign", "vegetation", "terrain", "sky",
	"person", "rider", "car", "truck", "bus",
	"train", "motorcycle", "bicycle",
}

// VoidCodes are raw annotation codes that map to IgnoreIndex.
var VoidCodes = [...]int32{0, 1, 2, 3, 4, 5, 6, 9, 10, 14, 15, 16, 18, 29, 30, -1}

// ValidCodes are raw annotation codes that map to compact ids; ValidCodes[i]
// maps to class id i.
var ValidCodes = [NumClasses]int32{
	7, 8, 11, 12, 13, 17, 19, 20, 21, 22, 23, 24, 25,
	26, 27, 28, 31, 32, 33,
}

// Palette holds the visualization color of each compact class id.
var Palette = [NumClasses][3]uint8{
	{128, 64, 128}, {244, 35, 232}, {70, 70, 70},
	{102, 102, 156}, {190, 153, 153}, {153, 153, 153}, {250, 170, 30},
	{220, 220, 0}, {107, 142, 35}, {152, 251, 152}, {0, 130, 180},
	{220, 20, 60}, {255, 0, 0}, {0, 0, 142}, {0, 0, 70},
	{0, 60, 100}, {0, 80, 100}, {0, 0, 230}, {119, 11, 32},
}

// Class describes one trainable category.
type Class struct {
	// ID is the compact index produced by EncodeSegmap.
	ID int32
	// Code is the raw annotation code.
	Code int32
	// Name is the human-readable label.
	Name string
	// Color is the visualization color.
	Color [3]uint8
}

// Classes returns the compact catalog ordered by id.
func Classes() []Class {
	out := make([]Class, NumClasses)
	for i := range out {
		out[i] = Class{
			ID:    int32(i),
			Code:  ValidCodes[i],
			Name:  ClassNames[i+1],
			Color: Palette[i],
		}
	}
	return out
}

// ClassName returns the name of a compact class id, "ignore" for
// IgnoreIndex, and an error for anything else.
func ClassName(id int32) (string, error) {
	switch {
	case id == IgnoreIndex:
		return "ignore", nil
	case id >= 0 && id < NumClasses:
		return ClassNames[id+1], nil
	default:
		return "", errors.Wrapf(ErrUnknownClass, "class id %d out of range [0, %d)", id, NumClasses)
	}
}

// ClassID returns the compact id of a class name.
func ClassID(name string) (int32, error) {
	for i := 1; i < len(ClassNames); i++ {
		if ClassNames[i] == name {
			return int32(i - 1), nil
		}
	}
	return -1, errors.Wrapf(ErrUnknownClass, "class %q not found", name)
}
