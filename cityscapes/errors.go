package cityscapes

import "github.com/pkg/errors"

// Error kinds returned by the dataset. Returned errors wrap one of these with
// context, so callers match with errors.Is or errors.Cause.
var (
	// ErrDatasetEmpty means no image files were found for the split.
	ErrDatasetEmpty = errors.New("no files found for split")
	// ErrFileDecode means an image or label file could not be read or decoded.
	ErrFileDecode = errors.New("file decode failed")
	// ErrPathDerivation means the label path derived from an image path does
	// not exist or could not be built.
	ErrPathDerivation = errors.New("label path derivation failed")
	// ErrInvalidSegmentation means a resized label held a value that is
	// neither the ignore index nor a class index.
	ErrInvalidSegmentation = errors.New("segmentation map contained invalid class values")
	// ErrUnmappedCode means a raw code is in neither the void nor the valid
	// set and the mapping is configured to reject such codes.
	ErrUnmappedCode = errors.New("raw label code is not mapped")
	// ErrUnknownVersion means the mean profile name is not registered.
	ErrUnknownVersion = errors.New("unknown mean profile")
	// ErrIndexOutOfRange means Item was called with an index outside [0, Len).
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownClass means a class id or name is not in the catalog.
	ErrUnknownClass = errors.New("unknown class")
	// ErrInvalidConfig means the configuration is unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FileError reports a failure to open or decode a dataset file. It matches
// its Kind with errors.Is and unwraps to the underlying I/O or decode error,
// so both errors.Is(err, ErrFileDecode) and errors.Is(err, fs.ErrNotExist)
// hold for a missing file.
type FileError struct {
	// Kind is ErrFileDecode or ErrPathDerivation.
	Kind error
	// Role is "image" or "label".
	Role string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Kind.Error() + ": " + e.Role + " " + e.Path + ": " + e.Err.Error()
}

// Is reports whether target is the error kind.
func (e *FileError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// Cause returns the error kind, for errors.Cause.
func (e *FileError) Cause() error {
	return e.Kind
}
