package ui

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"facelabel/processing/batch"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxListedFailures caps the failure list in the completion dialog.
const maxListedFailures = 10

func (a *DetectApp) showBatchComplete(report *batch.Report) {
	summary := fmt.Sprintf("Processed %d of %d images.\nResults saved to %s",
		report.Succeeded(), len(report.Results), report.OutputDir)

	content := container.NewVBox(widget.NewLabel(summary))

	if failed := report.Failed(); len(failed) > 0 {
		content.Add(widget.NewSeparator())
		content.Add(widget.NewLabelWithStyle("Failed:", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
		content.Add(failureList(failed))
	}

	dialog.NewCustomConfirm("Processing complete", "Open folder", "OK", content, func(open bool) {
		if open {
			a.openFolder(report.OutputDir)
		}
	}, a.mainWin).Show()
}

func failureList(failed []batch.Result) fyne.CanvasObject {
	lines := container.NewVBox()
	for i, res := range failed {
		if i == maxListedFailures {
			lines.Add(widget.NewLabel(fmt.Sprintf("... and %d more", len(failed)-i)))
			break
		}
		label := widget.NewLabel(fmt.Sprintf("%s: %v", filepath.Base(res.Input), res.Err))
		label.Wrapping = fyne.TextWrapWord
		lines.Add(label)
	}
	return lines
}

func (a *DetectApp) openFolder(dir string) {
	abs, err := filepath.Abs(dir)
	if err == nil {
		_, err = os.Stat(abs)
	}
	if err != nil {
		dialog.ShowError(errors.Errorf("result folder %s not found", dir), a.mainWin)
		return
	}

	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if err := a.fyneApp.OpenURL(u); err != nil {
		a.log.WithFields(logrus.Fields{"folder": abs, "error": err.Error()}).Warn("open folder failed")
		dialog.ShowError(err, a.mainWin)
	}
}

// ShowStartupError reports an error that happened before the main window
// exists, then exits with status 1 once the dialog is dismissed.
func ShowStartupError(err error) {
	a := app.New()
	w := a.NewWindow("Face age & gender")
	w.Resize(fyne.NewSize(520, 200))
	w.SetContent(widget.NewLabel("Startup failed"))

	d := dialog.NewError(err, w)
	d.SetOnClosed(a.Quit)

	w.CenterOnScreen()
	w.Show()
	d.Show()
	a.Run()

	os.Exit(1)
}
