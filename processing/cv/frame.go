// Package cv binds the detection pipeline to OpenCV through gocv.
package cv

import (
	"image"
	"image/color"

	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Frame is a BGR gocv.Mat. It owns the Mat and releases it on Close.
type Frame struct {
	mat gocv.Mat
}

func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.mat.Cols(), f.mat.Rows())
}

func (f *Frame) DrawRect(r image.Rectangle, c color.RGBA, thickness int) {
	gocv.Rectangle(&f.mat, r, c, thickness)
}

func (f *Frame) DrawText(text string, org image.Point, scale float64, c color.RGBA, thickness int) {
	gocv.PutText(&f.mat, text, org, gocv.FontHersheySimplex, scale, c, thickness)
}

func (f *Frame) ToImage() (image.Image, error) {
	return f.mat.ToImage()
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

func matOf(f processing.Frame) (gocv.Mat, error) {
	cf, ok := f.(*Frame)
	if !ok {
		return gocv.Mat{}, errors.Errorf("unsupported frame type %T", f)
	}
	if cf.mat.Empty() {
		return gocv.Mat{}, errors.New("empty frame")
	}
	return cf.mat, nil
}
