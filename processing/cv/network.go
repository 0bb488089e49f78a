package cv

import (
	"image"

	"facelabel/internal/config"
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// BlobParams describe how a face crop is turned into network input.
type BlobParams struct {
	ScaleFactor float64
	Size        image.Point
	Mean        gocv.Scalar
}

func NewBlobParams(cfg *config.Config) BlobParams {
	return BlobParams{
		ScaleFactor: cfg.BlobSettings.ScaleFactor,
		Size:        image.Pt(cfg.BlobSettings.Width, cfg.BlobSettings.Height),
		Mean:        gocv.NewScalar(cfg.MCvScalar.V0, cfg.MCvScalar.V1, cfg.MCvScalar.V2, 0),
	}
}

// Network is a Caffe classification network.
type Network struct {
	net  gocv.Net
	blob BlobParams
}

func LoadCaffeNetwork(model config.ModelConfig, blob BlobParams) (*Network, error) {
	net := gocv.ReadNetFromCaffe(model.Prototxt, model.CaffeModel)
	if net.Empty() {
		net.Close()
		return nil, errors.Errorf("error reading network model from: %s %s", model.Prototxt, model.CaffeModel)
	}
	return &Network{net: net, blob: blob}, nil
}

// Classify runs a forward pass over the face crop and returns the output scores.
func (n *Network) Classify(f processing.Frame, face image.Rectangle) ([]float32, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}

	crop := face.Intersect(f.Bounds())
	if crop.Empty() {
		return nil, errors.Errorf("face %v lies outside the image %v", face, f.Bounds())
	}

	region := mat.Region(crop)
	defer region.Close()

	blob := gocv.BlobFromImage(region, n.blob.ScaleFactor, n.blob.Size, n.blob.Mean, false, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, errors.New("network produced no output")
	}

	total := out.Total()
	scores := make([]float32, total)
	flat := out.Reshape(1, 1)
	defer flat.Close()
	for i := 0; i < total; i++ {
		scores[i] = flat.GetFloatAt(0, i)
	}

	return scores, nil
}

func (n *Network) Close() error {
	return n.net.Close()
}

// Models bundles everything loaded from disk at startup.
type Models struct {
	Cascade *Cascade
	Gender  *Network
	Age     *Network
}

// LoadModels loads the cascade and both networks. Any error is fatal.
func LoadModels(cfg *config.Config) (*Models, error) {
	cascade, err := LoadCascade(cfg.FaceCascade)
	if err != nil {
		return nil, err
	}

	blob := NewBlobParams(cfg)

	gender, err := LoadCaffeNetwork(cfg.GenderModel, blob)
	if err != nil {
		cascade.Close()
		return nil, errors.Wrap(err, "gender model")
	}

	age, err := LoadCaffeNetwork(cfg.AgeModel, blob)
	if err != nil {
		cascade.Close()
		gender.Close()
		return nil, errors.Wrap(err, "age model")
	}

	return &Models{Cascade: cascade, Gender: gender, Age: age}, nil
}

func (m *Models) Close() {
	m.Cascade.Close()
	m.Gender.Close()
	m.Age.Close()
}
