package processing

import (
	"image"
	"image/color"
)

// Frame is one decoded 3-channel image. The pipeline reads faces from it and
// draws annotations onto it in place.
type Frame interface {
	Bounds() image.Rectangle
	DrawRect(r image.Rectangle, c color.RGBA, thickness int)
	DrawText(text string, org image.Point, scale float64, c color.RGBA, thickness int)
	ToImage() (image.Image, error)
	Close() error
}

type FaceDetector interface {
	Detect(f Frame, scaleFactor float64, minNeighbors int) ([]image.Rectangle, error)
}

// Classifier runs one network over the face crop and returns its raw score vector.
type Classifier interface {
	Classify(f Frame, face image.Rectangle) ([]float32, error)
}
