package models

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// ErrModelMismatch means a network produced a score vector that does not fit
// its label set. It is fatal: the configured model files are wrong.
var ErrModelMismatch = errors.New("model output does not match label set")

var (
	Genders     = []string{"M", "W"}
	AgeBrackets = []string{"0-2", "4-6", "8-12", "15-20", "25-32", "38-43", "48-53", "60+"}
)

// FaceLabel is the classification of one detected face and where its label was drawn.
type FaceLabel struct {
	Face   image.Rectangle
	Gender string
	Age    string
	Text   image.Rectangle
}

func (f FaceLabel) String() string {
	return fmt.Sprintf("%s,%s", f.Gender, f.Age)
}

// ArgMax returns the index of the largest score. Ties resolve to the first occurrence.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, errors.New("empty score vector")
	}

	maxIndex := 0
	maxValue := scores[0]

	for i := 1; i < len(scores); i++ {
		if scores[i] > maxValue {
			maxValue = scores[i]
			maxIndex = i
		}
	}

	return maxIndex, nil
}

func PickLabel(labels []string, scores []float32) (string, error) {
	idx, err := ArgMax(scores)
	if err != nil {
		return "", errors.Wrap(ErrModelMismatch, err.Error())
	}

	if idx >= len(labels) {
		return "", errors.Wrapf(ErrModelMismatch, "class %d of %d scores, %d labels", idx, len(scores), len(labels))
	}

	return labels[idx], nil
}
