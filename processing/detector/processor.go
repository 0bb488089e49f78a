package processing

import (
	"image"
	"image/color"
	"sort"

	"facelabel/internal/config"
	"facelabel/internal/logger"
	"facelabel/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	boxThickness  = 2
	textThickness = 1
	shadowOffset  = 2
)

var (
	boxColor    = color.RGBA{R: 255, A: 255}
	shadowColor = color.RGBA{A: 255}
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Processor detects faces in a frame, classifies each one and draws the
// boxes and labels onto the frame. It is not safe for concurrent use: the
// underlying networks are reused between calls.
type Processor struct {
	faces  FaceDetector
	gender Classifier
	age    Classifier

	scaleFactor  float64
	minNeighbors int

	log *logrus.Logger
}

func NewProcessor(cfg *config.Config, faces FaceDetector, gender, age Classifier, log *logrus.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		faces:        faces,
		gender:       gender,
		age:          age,
		scaleFactor:  cfg.CascadeSettings.ScaleFactor,
		minNeighbors: cfg.CascadeSettings.MinNeighbors,
		log:          log,
	}
}

// Annotate runs the full pipeline over f and returns one label per face, in
// the order they were drawn. With no faces the frame is left untouched.
func (p *Processor) Annotate(f Frame) ([]models.FaceLabel, error) {
	faces, err := p.faces.Detect(f, p.scaleFactor, p.minNeighbors)
	if err != nil {
		return nil, errors.Wrap(err, "detect faces")
	}

	// labels are placed top to bottom
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Min.Y < faces[j].Min.Y
	})

	var layout LabelLayout
	labels := make([]models.FaceLabel, 0, len(faces))

	for _, face := range faces {
		label, err := p.classify(f, face)
		if err != nil {
			return labels, err
		}

		f.DrawRect(face, boxColor, boxThickness)

		label.Text = layout.Place(face)
		drawTextWithShadow(f, label.String(), label.Text.Min, FontScale(face.Dy()))

		labels = append(labels, label)
	}

	p.log.WithFields(logrus.Fields{"faces": len(labels)}).Trace("frame annotated")

	return labels, nil
}

func (p *Processor) classify(f Frame, face image.Rectangle) (models.FaceLabel, error) {
	label := models.FaceLabel{Face: face}

	genderScores, err := p.gender.Classify(f, face)
	if err != nil {
		return label, errors.Wrapf(err, "gender network, face %v", face)
	}
	if label.Gender, err = models.PickLabel(models.Genders, genderScores); err != nil {
		return label, errors.Wrap(err, "gender network")
	}

	ageScores, err := p.age.Classify(f, face)
	if err != nil {
		return label, errors.Wrapf(err, "age network, face %v", face)
	}
	if label.Age, err = models.PickLabel(models.AgeBrackets, ageScores); err != nil {
		return label, errors.Wrap(err, "age network")
	}

	return label, nil
}

func drawTextWithShadow(f Frame, text string, pos image.Point, scale float64) {
	f.DrawText(text, pos.Add(image.Pt(shadowOffset, shadowOffset)), scale, shadowColor, textThickness)
	f.DrawText(text, pos, scale, textColor, textThickness)
}
