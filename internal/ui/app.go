package ui

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"facelabel/internal/config"
	"facelabel/internal/controller"
	"facelabel/internal/logger"
	"facelabel/internal/models"
	"facelabel/processing/batch"
	processing "facelabel/processing/detector"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

const (
	startCameraText = "Start camera"
	stopCameraText  = "Stop camera"
)

var imageFilter = storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png"})

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config *config.Config
	ctrl   *controller.Controller
	log    *logrus.Logger

	videoCanvas *canvas.Image
	statusLabel *widget.Label
	fpsLabel    *widget.Label
	progress    *widget.ProgressBar

	cameraBtn  *widget.Button
	imageBtn   *widget.Button
	processBtn *widget.Button

	fpsMu      sync.Mutex
	frameCount uint
	lastFps    time.Time

	// cancels a running batch when the window goes away
	ctx    context.Context
	cancel context.CancelFunc

	exitCode int
}

func CreateApp(cfg *config.Config, log *logrus.Logger) *DetectApp {
	if log == nil {
		log = logger.Discard()
	}

	a := app.New()
	w := a.NewWindow("Face age & gender")

	w.Resize(fyne.NewSize(1200, 700))

	return &DetectApp{
		fyneApp: a,
		mainWin: w,
		config:  cfg,
		log:     log,
		lastFps: time.Now(),
	}
}

// Run shows the main window and blocks until it is closed. The returned
// value is the process exit code.
func (a *DetectApp) Run(ctrl *controller.Controller) int {
	a.ctrl = ctrl
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(640, 480))

	a.statusLabel = widget.NewLabel("Ready")
	a.fpsLabel = widget.NewLabel(a.formatFPS(0))

	a.progress = widget.NewProgressBar()
	a.progress.Hide()

	a.cameraBtn = widget.NewButtonWithIcon(startCameraText, theme.MediaPlayIcon(), a.toggleCamera)
	a.imageBtn = widget.NewButtonWithIcon("Select image", theme.FileImageIcon(), a.selectImage)
	a.processBtn = widget.NewButtonWithIcon("Process images", theme.FolderOpenIcon(), a.processImages)

	sidebar := container.NewVBox(
		widget.NewLabelWithStyle("Controls", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewSeparator(),
		a.cameraBtn,
		a.imageBtn,
		a.processBtn,
		widget.NewSeparator(),
		widget.NewLabel(fmt.Sprintf("Results: %s", a.config.ResultFolder)),
		a.progress,
	)

	videoContainer := container.NewBorder(
		container.NewHBox(a.fpsLabel, widget.NewSeparator(), a.statusLabel),
		nil, nil, nil,
		a.videoCanvas,
	)

	split := container.NewHSplit(
		container.NewPadded(sidebar),
		container.NewPadded(videoContainer),
	)
	split.SetOffset(0.25)

	a.mainWin.SetContent(split)

	a.mainWin.SetOnClosed(a.shutdown)

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()

	// Quit after a fatal error may skip the window callback.
	a.shutdown()

	return a.exitCode
}

// ShowFrame copies f into the video canvas. It may be called from any goroutine.
func (a *DetectApp) ShowFrame(f processing.Frame, labels []models.FaceLabel) {
	img, err := f.ToImage()
	if err != nil {
		a.log.WithFields(logrus.Fields{"error": err.Error()}).Debug("frame conversion failed")
		return
	}

	fps, update := a.countFrame()

	fyne.Do(func() {
		a.setImage(img)
		a.statusLabel.SetText(a.formatFaces(labels))
		if update {
			a.fpsLabel.SetText(a.formatFPS(fps))
		}
	})
}

// ShowFatal reports an unrecoverable runtime error and quits once dismissed.
func (a *DetectApp) ShowFatal(err error) {
	a.log.WithFields(logrus.Fields{"error": err.Error()}).Error("fatal error")

	fyne.Do(func() {
		a.exitCode = 1
		d := dialog.NewError(err, a.mainWin)
		d.SetOnClosed(func() {
			a.fyneApp.Quit()
		})
		d.Show()
	})
}

func (a *DetectApp) toggleCamera() {
	a.setBusy(true)

	go func() {
		state, err := a.ctrl.ToggleCamera()

		fyne.Do(func() {
			a.refreshCameraButton(state)
			a.setBusy(false)

			if err != nil {
				a.log.WithFields(logrus.Fields{"error": err.Error()}).Warn("camera toggle failed")
				dialog.ShowError(err, a.mainWin)
				return
			}
			if state == controller.Idle {
				a.statusLabel.SetText("Camera stopped")
				a.fpsLabel.SetText(a.formatFPS(0))
			}
		})
	}()
}

func (a *DetectApp) selectImage() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			return
		}

		path := reader.URI().Path()
		reader.Close()

		a.setBusy(true)

		go func() {
			labels, err := a.ctrl.ShowImage(path)

			fyne.Do(func() {
				a.refreshCameraButton(a.ctrl.State())
				a.setBusy(false)

				if err != nil {
					a.log.WithFields(logrus.Fields{"file": path, "error": err.Error()}).Warn("image failed")
					dialog.ShowError(err, a.mainWin)
					return
				}
				a.statusLabel.SetText(fmt.Sprintf("%s: %s", path, a.formatFaces(labels)))
			})
		}()
	}, a.mainWin)

	d.SetFilter(imageFilter)
	d.Show()
}

func (a *DetectApp) processImages() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if dir == nil {
			return
		}

		files, err := batch.ImageFiles(dir.Path())
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if len(files) == 0 {
			dialog.ShowInformation("Process images", "The selected folder contains no jpg or png images.", a.mainWin)
			return
		}

		a.runBatch(files)
	}, a.mainWin)
}

func (a *DetectApp) runBatch(files []string) {
	a.setBusy(true)
	a.progress.Min = 0
	a.progress.Max = float64(len(files))
	a.progress.SetValue(0)
	a.progress.Show()

	go func() {
		done := 0
		report, err := a.ctrl.ProcessBatch(a.ctx, files, func(res batch.Result) {
			done++
			n := done
			fyne.Do(func() {
				a.progress.SetValue(float64(n))
				a.statusLabel.SetText(fmt.Sprintf("Processed %d of %d", n, len(files)))
			})
		})

		fyne.Do(func() {
			a.progress.Hide()
			a.refreshCameraButton(a.ctrl.State())
			a.setBusy(false)

			if err != nil {
				a.log.WithFields(logrus.Fields{"error": err.Error()}).Error("batch aborted")
				dialog.ShowError(err, a.mainWin)
			}
			if report != nil {
				a.showBatchComplete(report)
			}
		})
	}()
}

// shutdown stops the current batch after its current file and blocks until
// the controller has released the camera and every running flow.
func (a *DetectApp) shutdown() {
	a.cancel()
	a.ctrl.Close()
}

func (a *DetectApp) setBusy(busy bool) {
	for _, b := range []*widget.Button{a.cameraBtn, a.imageBtn, a.processBtn} {
		if busy {
			b.Disable()
		} else {
			b.Enable()
		}
	}
}

func (a *DetectApp) refreshCameraButton(state controller.State) {
	if state == controller.CameraRunning {
		a.cameraBtn.SetText(stopCameraText)
		a.cameraBtn.SetIcon(theme.MediaStopIcon())
		return
	}
	a.cameraBtn.SetText(startCameraText)
	a.cameraBtn.SetIcon(theme.MediaPlayIcon())
}

func (a *DetectApp) setImage(img image.Image) {
	a.videoCanvas.Image = img
	a.videoCanvas.Refresh()
}

func (a *DetectApp) countFrame() (uint, bool) {
	a.fpsMu.Lock()
	defer a.fpsMu.Unlock()

	a.frameCount++
	if time.Since(a.lastFps) < time.Second {
		return 0, false
	}

	fps := a.frameCount
	a.frameCount = 0
	a.lastFps = time.Now()
	return fps, true
}

func (a *DetectApp) formatFPS(v uint) string {
	return fmt.Sprintf("FPS: %d", v)
}

func (a *DetectApp) formatFaces(labels []models.FaceLabel) string {
	switch len(labels) {
	case 0:
		return "No faces"
	case 1:
		return fmt.Sprintf("1 face: %s", labels[0])
	default:
		return fmt.Sprintf("%d faces", len(labels))
	}
}
