package processing

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

type drawnText struct {
	text  string
	org   image.Point
	scale float64
	color color.RGBA
}

type fakeFrame struct {
	bounds image.Rectangle
	rects  []image.Rectangle
	texts  []drawnText
	closed bool
}

func newFakeFrame(w, h int) *fakeFrame {
	return &fakeFrame{bounds: image.Rect(0, 0, w, h)}
}

func (f *fakeFrame) Bounds() image.Rectangle { return f.bounds }

func (f *fakeFrame) DrawRect(r image.Rectangle, _ color.RGBA, _ int) {
	f.rects = append(f.rects, r)
}

func (f *fakeFrame) DrawText(text string, org image.Point, scale float64, c color.RGBA, _ int) {
	f.texts = append(f.texts, drawnText{text: text, org: org, scale: scale, color: c})
}

func (f *fakeFrame) ToImage() (image.Image, error) {
	return image.NewRGBA(f.bounds), nil
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

type fakeDetector struct {
	faces []image.Rectangle
	err   error

	gotScale     float64
	gotNeighbors int
}

func (d *fakeDetector) Detect(_ Frame, scaleFactor float64, minNeighbors int) ([]image.Rectangle, error) {
	d.gotScale = scaleFactor
	d.gotNeighbors = minNeighbors
	out := make([]image.Rectangle, len(d.faces))
	copy(out, d.faces)
	return out, d.err
}

// fakeClassifier returns a one-hot vector whose hot index is chosen per face.
type fakeClassifier struct {
	size  int
	hot   func(face image.Rectangle) int
	calls []image.Rectangle
	err   error
}

func (c *fakeClassifier) Classify(_ Frame, face image.Rectangle) ([]float32, error) {
	c.calls = append(c.calls, face)
	if c.err != nil {
		return nil, c.err
	}

	scores := make([]float32, c.size)
	idx := 0
	if c.hot != nil {
		idx = c.hot(face)
	}
	if idx < c.size {
		scores[idx] = 1
	}
	return scores, nil
}

var errCrop = errors.New("crop outside image")
