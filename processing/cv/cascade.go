package cv

import (
	"image"

	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

type Cascade struct {
	classifier gocv.CascadeClassifier
}

func LoadCascade(path string) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, errors.Errorf("error reading cascade file: %s", path)
	}
	return &Cascade{classifier: classifier}, nil
}

// Detect runs the cascade on a grayscale copy of f with no minimum face size.
func (c *Cascade) Detect(f processing.Frame, scaleFactor float64, minNeighbors int) ([]image.Rectangle, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	return c.classifier.DetectMultiScaleWithParams(gray, scaleFactor, minNeighbors, 0, image.Point{}, image.Point{}), nil
}

func (c *Cascade) Close() error {
	return c.classifier.Close()
}
