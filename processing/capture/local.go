package capture

import (
	"sync"

	processing "facelabel/processing/detector"
)

// Loader decodes an image file into a frame.
type Loader interface {
	Load(path string) (processing.Frame, error)
}

// ImageFile is a still image used as a one-shot source.
type ImageFile struct {
	mu sync.Mutex

	path  string
	frame processing.Frame
}

func OpenImageFile(path string, loader Loader) (*ImageFile, error) {
	frame, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return &ImageFile{path: path, frame: frame}, nil
}

// Read hands the decoded frame over exactly once.
func (s *ImageFile) Read() (processing.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, false
	}

	f := s.frame
	s.frame = nil
	return f, true
}

func (s *ImageFile) Path() string {
	return s.path
}

// Close releases the frame if it was never read.
func (s *ImageFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil
	}

	err := s.frame.Close()
	s.frame = nil
	return err
}
