package capture

import (
	"facelabel/processing/cv"

	"github.com/pkg/errors"
)

type SourceType string

const (
	SourceCamera SourceType = "Camera"
	SourceImage  SourceType = "Image"
)

// NewSource opens a camera by device id or a still image by path.
func NewSource(kind SourceType, deviceID int, path string) (Source, error) {
	switch kind {
	case SourceCamera:
		return OpenCamera(deviceID)
	case SourceImage:
		return OpenImageFile(path, cv.Store{})
	default:
		return nil, errors.Errorf("unknown source: %s", kind)
	}
}
