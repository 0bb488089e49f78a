package capture

import (
	"image"
	"image/color"
	"testing"

	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFrame struct{ closed int }

func (f *stubFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }

func (f *stubFrame) DrawRect(image.Rectangle, color.RGBA, int) {}

func (f *stubFrame) DrawText(string, image.Point, float64, color.RGBA, int) {}

func (f *stubFrame) ToImage() (image.Image, error) { return image.NewRGBA(f.Bounds()), nil }

func (f *stubFrame) Close() error {
	f.closed++
	return nil
}

type stubLoader struct {
	frame *stubFrame
	err   error
}

func (l stubLoader) Load(string) (processing.Frame, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.frame, nil
}

func TestImageFileYieldsOnce(t *testing.T) {
	frame := &stubFrame{}
	src, err := OpenImageFile("a.png", stubLoader{frame: frame})
	require.NoError(t, err)

	got, ok := src.Read()
	require.True(t, ok)
	assert.Same(t, frame, got)

	_, ok = src.Read()
	assert.False(t, ok)

	// the reader owns the frame now
	require.NoError(t, src.Close())
	assert.Equal(t, 0, frame.closed)
	assert.Equal(t, "a.png", src.Path())
}

func TestImageFileCloseUnread(t *testing.T) {
	frame := &stubFrame{}
	src, err := OpenImageFile("a.png", stubLoader{frame: frame})
	require.NoError(t, err)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.Equal(t, 1, frame.closed)
}

func TestImageFileLoadError(t *testing.T) {
	_, err := OpenImageFile("broken.png", stubLoader{err: errors.New("cannot decode")})
	assert.Error(t, err)
}

func TestNewSourceUnknown(t *testing.T) {
	_, err := NewSource(SourceType("YouTube"), 0, "")
	assert.Error(t, err)
}
