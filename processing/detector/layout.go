package processing

import "image"

const (
	LabelHeight = 20
	labelOffset = 20
	labelStep   = 20

	minFontScale = 0.7
	maxFontScale = 1.0
	fontRefSize  = 120.0
)

// LabelLayout keeps the label rectangles already placed in one frame.
// Faces must be placed top to bottom.
type LabelLayout struct {
	placed []image.Rectangle
}

// Place reserves a label rectangle under face, moving it down until it
// overlaps none of the previously placed ones.
func (l *LabelLayout) Place(face image.Rectangle) image.Rectangle {
	y := face.Max.Y + labelOffset

	var area image.Rectangle
	for {
		area = image.Rect(face.Min.X, y, face.Max.X, y+LabelHeight)
		if !l.overlaps(area) {
			break
		}
		y += labelStep
	}

	l.placed = append(l.placed, area)
	return area
}

func (l *LabelLayout) Placed() []image.Rectangle {
	return l.placed
}

func (l *LabelLayout) overlaps(r image.Rectangle) bool {
	for _, p := range l.placed {
		if p.Overlaps(r) {
			return true
		}
	}
	return false
}

// FontScale derives the label font scale from face height, clamped to [0.7, 1.0].
func FontScale(faceHeight int) float64 {
	s := float64(faceHeight) / fontRefSize
	if s < minFontScale {
		return minFontScale
	}
	if s > maxFontScale {
		return maxFontScale
	}
	return s
}
