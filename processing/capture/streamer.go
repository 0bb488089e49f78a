package capture

import (
	processing "facelabel/processing/detector"
)

// Source produces one frame per Read. Read returns false when no frame is
// available right now; the caller owns and must close returned frames.
type Source interface {
	Read() (processing.Frame, bool)
	Close() error
}
