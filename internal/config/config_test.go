package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func validConfig(t *testing.T, dir string) *Config {
	t.Helper()
	return &Config{
		FaceCascade:     touch(t, dir, "haarcascade.xml"),
		AgeModel:        ModelConfig{Prototxt: touch(t, dir, "age.prototxt"), CaffeModel: touch(t, dir, "age.caffemodel")},
		GenderModel:     ModelConfig{Prototxt: touch(t, dir, "gender.prototxt"), CaffeModel: touch(t, dir, "gender.caffemodel")},
		ResultFolder:    filepath.Join(dir, "out"),
		CascadeSettings: CascadeSettings{ScaleFactor: 1.1, MinNeighbors: 5},
		BlobSettings:    BlobSettings{ScaleFactor: 1.0, Width: 227, Height: 227},
		MCvScalar:       &MeanScalar{V0: 78.4263377603, V1: 87.7689143744, V2: 114.895847746},
	}
}

func TestLoadCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"FaceCascade": "cascade.xml",
		"AgeModel": {"Prototxt": "age.prototxt", "CaffeModel": "age.caffemodel"},
		"gendermodel": {"prototxt": "g.prototxt", "caffemodel": "g.caffemodel"},
		"ResultFolder": "Results",
		"CascadeSettings": {"ScaleFactor": 1.1, "MinNeighbors": 5},
		"BlobSettings": {"ScaleFactor": 1.0, "Width": 227, "Height": 227},
		"MCvScalar": {"V0": 78.4, "V1": 87.7, "V2": 114.8}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cascade.xml", cfg.FaceCascade)
	assert.Equal(t, "age.caffemodel", cfg.AgeModel.CaffeModel)
	assert.Equal(t, "g.prototxt", cfg.GenderModel.Prototxt)
	assert.Equal(t, "Results", cfg.ResultFolder)
	assert.Equal(t, 1.1, cfg.CascadeSettings.ScaleFactor)
	assert.Equal(t, 5, cfg.CascadeSettings.MinNeighbors)
	assert.Equal(t, 227, cfg.BlobSettings.Width)
	assert.InDelta(t, 114.8, cfg.MCvScalar.V2, 1e-9)

	assert.Equal(t, DefaultFrameInterval, cfg.FrameInterval())
	assert.Equal(t, "face", cfg.RemoteDetector.Label)
	assert.False(t, cfg.RemoteDetector.Enabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"faceCascade": `)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing cascade",
			mutate:  func(c *Config) { c.FaceCascade = filepath.Join(dir, "missing.xml") },
			wantErr: ErrNotFound,
		},
		{
			name:    "missing age weights",
			mutate:  func(c *Config) { c.AgeModel.CaffeModel = filepath.Join(dir, "missing.caffemodel") },
			wantErr: ErrNotFound,
		},
		{
			name:    "missing gender prototxt",
			mutate:  func(c *Config) { c.GenderModel.Prototxt = filepath.Join(dir, "missing.prototxt") },
			wantErr: ErrNotFound,
		},
		{
			name:    "model path is a directory",
			mutate:  func(c *Config) { c.GenderModel.CaffeModel = dir },
			wantErr: ErrNotFound,
		},
		{
			name:    "scale factor must exceed one",
			mutate:  func(c *Config) { c.CascadeSettings.ScaleFactor = 1.0 },
			wantErr: ErrInvalid,
		},
		{
			name:    "negative min neighbors",
			mutate:  func(c *Config) { c.CascadeSettings.MinNeighbors = -1 },
			wantErr: ErrInvalid,
		},
		{
			name:    "zero blob width",
			mutate:  func(c *Config) { c.BlobSettings.Width = 0 },
			wantErr: ErrInvalid,
		},
		{
			name:    "empty result folder",
			mutate:  func(c *Config) { c.ResultFolder = "" },
			wantErr: ErrInvalid,
		},
		{
			name:    "missing mean scalar",
			mutate:  func(c *Config) { c.MCvScalar = nil },
			wantErr: ErrInvalid,
		},
		{
			name:    "bad remote url",
			mutate:  func(c *Config) { c.RemoteDetector.URL = "not a url" },
			wantErr: ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t, dir)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadAndValidateMissingModel(t *testing.T) {
	dir := t.TempDir()
	cascade := touch(t, dir, "cascade.xml")
	agePrototxt := touch(t, dir, "age.prototxt")

	path := writeConfig(t, dir, `{
		"faceCascade": "`+filepath.ToSlash(cascade)+`",
		"ageModel": {"prototxt": "`+filepath.ToSlash(agePrototxt)+`", "caffeModel": "`+filepath.ToSlash(filepath.Join(dir, "absent.caffemodel"))+`"},
		"genderModel": {"prototxt": "`+filepath.ToSlash(agePrototxt)+`", "caffeModel": "`+filepath.ToSlash(agePrototxt)+`"},
		"resultFolder": "out",
		"cascadeSettings": {"scaleFactor": 1.1, "minNeighbors": 3},
		"blobSettings": {"scaleFactor": 1.0, "width": 227, "height": 227},
		"mcvScalar": {"v0": 1, "v1": 2, "v2": 3}
	}`)

	cfg, err := LoadAndValidate(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "age model weights")
}

func TestLoadAndValidateMissingRequiredSections(t *testing.T) {
	dir := t.TempDir()
	cascade := filepath.ToSlash(touch(t, dir, "cascade.xml"))
	prototxt := filepath.ToSlash(touch(t, dir, "net.prototxt"))
	weights := filepath.ToSlash(touch(t, dir, "net.caffemodel"))

	path := writeConfig(t, dir, `{
		"faceCascade": "`+cascade+`",
		"ageModel": {"prototxt": "`+prototxt+`", "caffeModel": "`+weights+`"},
		"genderModel": {"prototxt": "`+prototxt+`", "caffeModel": "`+weights+`"},
		"cascadeSettings": {"scaleFactor": 1.1, "minNeighbors": 3},
		"blobSettings": {"scaleFactor": 1.0, "width": 227, "height": 227}
	}`)

	cfg, err := LoadAndValidate(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "ResultFolder")
	assert.Contains(t, err.Error(), "MCvScalar")
}

func TestOptionalDurations(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.FrameIntervalMs = 50
	cfg.RemoteDetector.TimeoutMs = 0

	assert.Equal(t, 50*time.Millisecond, cfg.FrameInterval())
	assert.Equal(t, 2*time.Second, cfg.RemoteDetector.Timeout())

	cfg.RemoteDetector.TimeoutMs = 250
	assert.Equal(t, 250*time.Millisecond, cfg.RemoteDetector.Timeout())
}
