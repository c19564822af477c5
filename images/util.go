package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Checksum generates a deterministic checksum for an RGB array so repeated
// reads of the same sample can be compared cheaply.
//
// Arguments:
// - img: The array to hash.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	fmt.Printf("image checksum: %s\n", Checksum(sample.Image))
//
// ```
func Checksum(img *RGB) string {
	if img == nil || len(img.Pix) == 0 {
		return "empty"
	}
	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", img.Height, img.Width)
	hash.Write(img.Pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// LabelChecksum is Checksum for label maps.
func LabelChecksum(lbl *LabelMap) string {
	if lbl == nil || len(lbl.Pix) == 0 {
		return "empty"
	}
	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", lbl.Height, lbl.Width)
	buf := make([]byte, 4)
	for _, v := range lbl.Pix {
		binary.LittleEndian.PutUint32(buf, uint32(v))
		hash.Write(buf)
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
