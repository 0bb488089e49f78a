package models

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgMax(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		want   int
	}{
		{"two classes", []float32{0.2, 0.8}, 1},
		{"first wins", []float32{0.9, 0.1}, 0},
		{"tie resolves to first", []float32{0.1, 0.45, 0.45}, 1},
		{"all equal", []float32{0.25, 0.25, 0.25, 0.25}, 0},
		{"single", []float32{0.3}, 0},
		{"negative logits", []float32{-3, -1, -2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArgMax(tt.scores)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgMaxEmpty(t *testing.T) {
	_, err := ArgMax(nil)
	assert.Error(t, err)
}

func TestPickLabel(t *testing.T) {
	g, err := PickLabel(Genders, []float32{0.2, 0.8})
	require.NoError(t, err)
	assert.Equal(t, "W", g)

	scores := make([]float32, len(AgeBrackets))
	scores[4] = 0.9
	a, err := PickLabel(AgeBrackets, scores)
	require.NoError(t, err)
	assert.Equal(t, "25-32", a)
}

func TestPickLabelMismatch(t *testing.T) {
	_, err := PickLabel(Genders, []float32{0.1, 0.2, 0.7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelMismatch))

	_, err = PickLabel(Genders, []float32{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelMismatch))
}

func TestLabelSets(t *testing.T) {
	assert.Len(t, Genders, 2)
	assert.Len(t, AgeBrackets, 8)
}

func TestFaceLabelString(t *testing.T) {
	l := FaceLabel{Face: image.Rect(0, 0, 10, 10), Gender: "M", Age: "60+"}
	assert.Equal(t, "M,60+", l.String())
}
