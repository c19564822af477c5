package cityscapes

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Built-in mean profile names.
const (
	VersionCityscapes = "cityscapes"
	VersionPascal     = "pascal"
)

var (
	meanMu       sync.RWMutex
	meanProfiles = map[string][3]float64{
		VersionPascal:     {103.939, 116.779, 123.68},
		VersionCityscapes: {0.0, 0.0, 0.0},
	}
)

// RegisterMeanProfile adds or replaces a per-channel mean, on the 0-255
// scale and in BGR order, under name. Register profiles before constructing
// datasets that use them; a Dataset copies its mean at construction.
func RegisterMeanProfile(name string, mean [3]float64) error {
	if name == "" {
		return errors.Wrap(ErrInvalidConfig, "mean profile name is empty")
	}
	meanMu.Lock()
	defer meanMu.Unlock()
	meanProfiles[name] = mean
	return nil
}

// MeanProfile returns the mean registered under name.
func MeanProfile(name string) ([3]float64, error) {
	meanMu.RLock()
	defer meanMu.RUnlock()
	mean, ok := meanProfiles[name]
	if !ok {
		return [3]float64{}, errors.Wrapf(ErrUnknownVersion, "version %q", name)
	}
	return mean, nil
}

// MeanProfiles returns the registered profile names in sorted order.
func MeanProfiles() []string {
	meanMu.RLock()
	defer meanMu.RUnlock()
	names := make([]string, 0, len(meanProfiles))
	for name := range meanProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
