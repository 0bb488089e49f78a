// Package controller owns the camera, the polling loop and the image flows,
// and serializes them through an explicit state machine.
package controller

import (
	"context"
	"sync"
	"time"

	"facelabel/internal/config"
	"facelabel/internal/logger"
	"facelabel/internal/models"
	"facelabel/processing/batch"
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// State is the controller's current mode.
type State int

const (
	Idle State = iota
	CameraRunning
	ImageLoaded
	BatchProcessing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case CameraRunning:
		return "CameraRunning"
	case ImageLoaded:
		return "ImageLoaded"
	case BatchProcessing:
		return "BatchProcessing"
	default:
		return "Unknown"
	}
}

var (
	// ErrBusy is returned when a flow is requested while another one is running.
	ErrBusy = errors.New("another operation is in progress")
	// ErrClosed is returned by every flow once Close has been called.
	ErrClosed = errors.New("controller is closed")
)

// Source is a frame source as provided by the capture package.
type Source interface {
	Read() (processing.Frame, bool)
	Close() error
}

type Annotator interface {
	Annotate(f processing.Frame) ([]models.FaceLabel, error)
}

type BatchRunner interface {
	Run(ctx context.Context, paths []string, progress func(batch.Result)) (*batch.Report, error)
}

type Options struct {
	OpenCamera func() (Source, error)
	OpenImage  func(path string) (Source, error)

	Annotator Annotator
	Batch     BatchRunner

	// Interval between camera polls. Defaults to config.DefaultFrameInterval.
	Interval time.Duration

	// OnFrame receives every annotated frame. The frame is closed when it returns.
	OnFrame func(f processing.Frame, labels []models.FaceLabel)
	// OnFatal is called once when the camera loop hits an unrecoverable error.
	OnFatal func(err error)

	Log *logrus.Logger
}

type Controller struct {
	opts Options
	log  *logrus.Logger

	mu     sync.Mutex
	state  State
	closed bool
	cam    Source
	stop   chan struct{}
	done   chan struct{}

	// flows counts ShowImage and ProcessBatch calls between enter and leave.
	flows sync.WaitGroup
}

func New(opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultFrameInterval
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}

	return &Controller{opts: opts, log: opts.Log, state: Idle}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ToggleCamera starts the camera when idle and stops it when running.
// The transition is decided under a single lock; it returns the state after it.
func (c *Controller) ToggleCamera() (State, error) {
	c.mu.Lock()
	if c.state == CameraRunning {
		cam, stop, done := c.detachCamera()
		c.mu.Unlock()

		c.releaseCamera(cam, stop, done)
		return Idle, nil
	}

	err := c.startCameraLocked()
	state := c.state
	c.mu.Unlock()

	return state, err
}

func (c *Controller) StartCamera() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.startCameraLocked()
}

func (c *Controller) startCameraLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.state != Idle {
		return errors.Wrapf(ErrBusy, "start camera in state %s", c.state)
	}

	cam, err := c.opts.OpenCamera()
	if err != nil {
		return errors.Wrap(err, "start camera")
	}

	c.cam = cam
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.state = CameraRunning

	go c.runLoop(cam, c.stop, c.done)

	c.log.WithFields(logrus.Fields{"interval": c.opts.Interval}).Info("camera started")
	return nil
}

// StopCamera stops polling, waits for the loop to exit and releases the
// device. It is a no-op unless the camera is running.
func (c *Controller) StopCamera() {
	c.mu.Lock()
	if c.state != CameraRunning {
		c.mu.Unlock()
		return
	}
	cam, stop, done := c.detachCamera()
	c.mu.Unlock()

	c.releaseCamera(cam, stop, done)
}

// detachCamera moves CameraRunning to Idle. c.mu must be held.
func (c *Controller) detachCamera() (Source, chan struct{}, chan struct{}) {
	cam, stop, done := c.cam, c.stop, c.done
	c.cam, c.stop, c.done = nil, nil, nil
	c.state = Idle
	return cam, stop, done
}

func (c *Controller) releaseCamera(cam Source, stop, done chan struct{}) {
	close(stop)
	<-done

	if err := cam.Close(); err != nil {
		c.log.WithFields(logrus.Fields{"error": err.Error()}).Warn("closing camera")
	}

	c.log.Info("camera stopped")
}

// ShowImage annotates a single image and hands it to OnFrame. An empty path
// means nothing was selected and leaves the state unchanged.
func (c *Controller) ShowImage(path string) ([]models.FaceLabel, error) {
	if path == "" {
		return nil, nil
	}

	if err := c.enter(ImageLoaded); err != nil {
		return nil, err
	}
	defer c.leave()

	src, err := c.opts.OpenImage(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer src.Close()

	frame, ok := src.Read()
	if !ok {
		return nil, errors.Errorf("no image data in %s", path)
	}
	defer frame.Close()

	labels, err := c.opts.Annotator.Annotate(frame)
	if err != nil {
		return nil, errors.Wrapf(err, "process %s", path)
	}

	c.log.WithFields(logrus.Fields{"file": path, "faces": len(labels)}).Info("image processed")

	if c.opts.OnFrame != nil {
		c.opts.OnFrame(frame, labels)
	}

	return labels, nil
}

// ProcessBatch runs the batch flow over paths. An empty selection is a no-op.
func (c *Controller) ProcessBatch(ctx context.Context, paths []string, progress func(batch.Result)) (*batch.Report, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	if err := c.enter(BatchProcessing); err != nil {
		return nil, err
	}
	defer c.leave()

	c.log.WithFields(logrus.Fields{"files": len(paths)}).Info("batch started")

	report, err := c.opts.Batch.Run(ctx, paths, progress)
	if report != nil {
		c.log.WithFields(logrus.Fields{
			"succeeded": report.Succeeded(),
			"failed":    len(report.Failed()),
			"output":    report.OutputDir,
		}).Info("batch finished")
	}

	return report, err
}

// Close rejects new flows, releases the camera and waits for a running
// image or batch flow to finish. Models may be freed once it returns.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.StopCamera()
	c.flows.Wait()
}

// enter switches from Idle to next, stopping the camera first if needed.
func (c *Controller) enter(next State) error {
	c.StopCamera()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != Idle {
		return errors.Wrapf(ErrBusy, "%s in state %s", next, c.state)
	}
	c.state = next
	c.flows.Add(1)
	return nil
}

func (c *Controller) leave() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()

	c.flows.Done()
}

func (c *Controller) runLoop(cam Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.tick(cam); err != nil {
				c.log.WithFields(logrus.Fields{"error": err.Error()}).Error("camera loop stopped")
				// StopCamera waits for this goroutine, so it has to run elsewhere.
				go c.StopCamera()
				if c.opts.OnFatal != nil {
					c.opts.OnFatal(err)
				}
				return
			}
		}
	}
}

// tick processes one camera frame. Only fatal errors are returned: a missing
// frame or a failed frame just skips rendering.
func (c *Controller) tick(cam Source) error {
	frame, ok := cam.Read()
	if !ok {
		return nil
	}
	defer frame.Close()

	labels, err := c.opts.Annotator.Annotate(frame)
	if err != nil {
		if errors.Is(err, models.ErrModelMismatch) {
			return err
		}
		c.log.WithFields(logrus.Fields{"error": err.Error()}).Debug("frame skipped")
		return nil
	}

	if c.opts.OnFrame != nil {
		c.opts.OnFrame(frame, labels)
	}
	return nil
}
