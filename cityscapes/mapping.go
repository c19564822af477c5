package cityscapes

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-cityscapes/images"
)

// UnmappedPolicy decides what happens to raw codes that are in neither the
// void nor the valid set.
type UnmappedPolicy string

const (
	// UnmappedPassthrough leaves such codes unchanged.
	UnmappedPassthrough UnmappedPolicy = "passthrough"
	// UnmappedIgnore maps such codes to IgnoreIndex.
	UnmappedIgnore UnmappedPolicy = "ignore"
	// UnmappedError rejects the mask with ErrUnmappedCode.
	UnmappedError UnmappedPolicy = "error"
)

// Valid reports whether p is a known policy.
func (p UnmappedPolicy) Valid() bool {
	switch p {
	case UnmappedPassthrough, UnmappedIgnore, UnmappedError:
		return true
	}
	return false
}

// The lookup table covers raw codes [lutMin, lutMin+lutSize).
const (
	lutMin  = -1
	lutSize = 257
)

type codeKind uint8

const (
	kindUnmapped codeKind = iota
	kindVoid
	kindValid
)

// Mapping converts raw annotation codes to compact class ids.
//
// It is compiled once into a lookup table keyed by the original code, so a
// code rewritten by one rule can never be matched again by another. A
// Mapping is immutable and safe for concurrent use.
type Mapping struct {
	policy UnmappedPolicy
	kind   [lutSize]codeKind
	value  [lutSize]int32
}

// NewMapping compiles the void and valid code sets.
//
// Arguments:
//   - policy: What to do with codes outside both sets. Empty means
//     UnmappedPassthrough.
//
// Returns:
//   - *Mapping: The compiled mapping.
//   - error: ErrInvalidConfig for an unknown policy.
func NewMapping(policy UnmappedPolicy) (*Mapping, error) {
	if policy == "" {
		policy = UnmappedPassthrough
	}
	if !policy.Valid() {
		return nil, errors.Wrapf(ErrInvalidConfig, "unmapped policy %q", policy)
	}

	m := &Mapping{policy: policy}
	for _, code := range VoidCodes {
		m.kind[code-lutMin] = kindVoid
		m.value[code-lutMin] = IgnoreIndex
	}
	for id, code := range ValidCodes {
		m.kind[code-lutMin] = kindValid
		m.value[code-lutMin] = int32(id)
	}
	return m, nil
}

// Policy returns the unmapped-code policy.
func (m *Mapping) Policy() UnmappedPolicy {
	return m.policy
}

// Lookup returns the encoded value of a single raw code and whether the
// code is in the void or valid set. Unmapped codes are returned according
// to the policy; under UnmappedError they are returned unchanged.
func (m *Mapping) Lookup(code int32) (int32, bool) {
	i := int(code) - lutMin
	if i < 0 || i >= lutSize || m.kind[i] == kindUnmapped {
		if m.policy == UnmappedIgnore {
			return IgnoreIndex, false
		}
		return code, false
	}
	return m.value[i], true
}

// Encode returns a new label map with every raw code replaced in a single
// pass: void codes become IgnoreIndex, valid codes their compact id, other
// codes follow the policy. The input is not modified.
func (m *Mapping) Encode(mask *images.LabelMap) (*images.LabelMap, error) {
	out := images.NewLabelMap(mask.Height, mask.Width)
	for i, code := range mask.Pix {
		v, ok := m.Lookup(code)
		if !ok && m.policy == UnmappedError {
			y, x := i/mask.Width, i%mask.Width
			return nil, errors.Wrapf(ErrUnmappedCode, "code %d at (%d, %d)", code, y, x)
		}
		out.Pix[i] = v
	}
	return out, nil
}

// UnmappedCodes returns the distinct raw codes of mask that are in neither
// the void nor the valid set, in ascending order.
func (m *Mapping) UnmappedCodes(mask *images.LabelMap) []int32 {
	seen := make(map[int32]struct{})
	for _, code := range mask.Pix {
		i := int(code) - lutMin
		if i < 0 || i >= lutSize || m.kind[i] == kindUnmapped {
			seen[code] = struct{}{}
		}
	}
	out := make([]int32, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String describes the mapping for logs.
func (m *Mapping) String() string {
	return fmt.Sprintf("mapping{void=%d valid=%d unmapped=%s}", len(VoidCodes), len(ValidCodes), m.policy)
}
