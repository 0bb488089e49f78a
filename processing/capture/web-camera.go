package capture

import (
	"sync"

	"facelabel/processing/cv"
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Camera polls a capture device. Frames are grabbed on demand, so a slow
// consumer always gets the most recent frame instead of a backlog.
type Camera struct {
	closeOnce sync.Once

	deviceID int
	capture  *gocv.VideoCapture
}

func OpenCamera(deviceID int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture device %d", deviceID)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("capture device %d is not available", deviceID)
	}

	return &Camera{deviceID: deviceID, capture: vc}, nil
}

func (c *Camera) Read() (processing.Frame, bool) {
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, false
	}
	return cv.NewFrame(mat), true
}

func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.capture.Close()
	})
	return err
}
