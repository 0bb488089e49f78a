package cv

import (
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Store reads and writes image files through OpenCV codecs.
type Store struct{}

func (Store) Load(path string) (processing.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, errors.Errorf("cannot decode image %s", path)
	}
	return NewFrame(mat), nil
}

// Save encodes f by the extension of path.
func (Store) Save(path string, f processing.Frame) error {
	mat, err := matOf(f)
	if err != nil {
		return err
	}
	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("cannot write image %s", path)
	}
	return nil
}
