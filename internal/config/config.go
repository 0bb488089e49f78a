package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	DefaultConfigPath    string = "config.json"
	DefaultFrameInterval        = 30 * time.Millisecond

	defaultRemoteLabel   = "face"
	defaultRemoteTimeout = 2 * time.Second
)

var (
	ErrNotFound = errors.New("file not found")
	ErrInvalid  = errors.New("invalid configuration")
)

// field names are matched case-insensitively
var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ModelConfig struct {
	Prototxt   string `json:"prototxt" validate:"required"`
	CaffeModel string `json:"caffeModel" validate:"required"`
}

type CascadeSettings struct {
	ScaleFactor  float64 `json:"scaleFactor" validate:"gt=1"`
	MinNeighbors int     `json:"minNeighbors" validate:"gte=0"`
}

type BlobSettings struct {
	ScaleFactor float64 `json:"scaleFactor" validate:"gt=0"`
	Width       int     `json:"width" validate:"gt=0"`
	Height      int     `json:"height" validate:"gt=0"`
}

// MeanScalar is subtracted from every blob, in the network's channel order.
type MeanScalar struct {
	V0 float64 `json:"v0"`
	V1 float64 `json:"v1"`
	V2 float64 `json:"v2"`
}

type RemoteDetectorConfig struct {
	URL           string  `json:"url" validate:"omitempty,url"`
	Label         string  `json:"label"`
	MinConfidence float32 `json:"minConfidence" validate:"gte=0,lte=1"`
	TimeoutMs     int     `json:"timeoutMs" validate:"gte=0"`
}

func (r RemoteDetectorConfig) Enabled() bool {
	return r.URL != ""
}

func (r RemoteDetectorConfig) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return defaultRemoteTimeout
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

type LogConfig struct {
	Level string `json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	File  string `json:"file"`
}

type Config struct {
	FaceCascade     string          `json:"faceCascade" validate:"required"`
	AgeModel        ModelConfig     `json:"ageModel"`
	GenderModel     ModelConfig     `json:"genderModel"`
	ResultFolder    string          `json:"resultFolder" validate:"required"`
	CascadeSettings CascadeSettings `json:"cascadeSettings"`
	BlobSettings    BlobSettings    `json:"blobSettings"`
	MCvScalar       *MeanScalar     `json:"mcvScalar" validate:"required"`

	CameraDevice    int                  `json:"cameraDevice" validate:"gte=0"`
	FrameIntervalMs int                  `json:"frameIntervalMs" validate:"gte=0"`
	RemoteDetector  RemoteDetectorConfig `json:"remoteDetector"`
	Log             LogConfig            `json:"log"`
}

// FrameInterval is the camera polling period.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameIntervalMs <= 0 {
		return DefaultFrameInterval
	}
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// Validate checks value constraints and that every referenced model file exists.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrapf(ErrInvalid, "%v", err)
	}

	files := []struct {
		what string
		path string
	}{
		{"face cascade", c.FaceCascade},
		{"age model prototxt", c.AgeModel.Prototxt},
		{"age model weights", c.AgeModel.CaffeModel},
		{"gender model prototxt", c.GenderModel.Prototxt},
		{"gender model weights", c.GenderModel.CaffeModel},
	}

	for _, f := range files {
		if err := fileExists(f.path); err != nil {
			return errors.Wrapf(err, "%s", f.what)
		}
	}

	return nil
}

// Load reads the configuration at path and fills in defaults for optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "configuration %s", path)
		}
		return nil, errors.Wrapf(err, "read configuration %s", path)
	}

	cfg := NewDefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "parse %s: %v", path, err)
	}

	if cfg.RemoteDetector.Label == "" {
		cfg.RemoteDetector.Label = defaultRemoteLabel
	}

	return cfg, nil
}

// LoadAndValidate is the startup path: any error returned is fatal.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func NewDefaultConfig() *Config {
	return &Config{
		CameraDevice:    0,
		FrameIntervalMs: int(DefaultFrameInterval / time.Millisecond),
		RemoteDetector: RemoteDetectorConfig{
			Label: defaultRemoteLabel,
		},
		Log: LogConfig{Level: "info"},
	}
}

func fileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "%s", path)
		}
		return errors.Wrapf(err, "stat %s", path)
	}

	if info.IsDir() {
		return errors.Wrapf(ErrNotFound, "%s is a directory", path)
	}

	return nil
}
