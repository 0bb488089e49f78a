// Package batch annotates a list of image files and writes the results to an
// output folder, one file at a time.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"facelabel/internal/logger"
	"facelabel/internal/models"
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const resultSuffix = "_result.png"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type Store interface {
	Load(path string) (processing.Frame, error)
	Save(path string, f processing.Frame) error
}

type Annotator interface {
	Annotate(f processing.Frame) ([]models.FaceLabel, error)
}

type Result struct {
	Input  string
	Output string
	Faces  []models.FaceLabel
	Err    error
}

type Report struct {
	OutputDir string
	Results   []Result
}

func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) Succeeded() int {
	return len(r.Results) - len(r.Failed())
}

type Runner struct {
	store     Store
	annotator Annotator
	outDir    string
	log       *logrus.Logger
}

func NewRunner(store Store, annotator Annotator, outDir string, log *logrus.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{store: store, annotator: annotator, outDir: outDir, log: log}
}

func (r *Runner) OutputDir() string {
	return r.outDir
}

// Run processes paths in order. A failing file is recorded in the report and
// the batch moves on; a model mismatch or a cancelled ctx stops the batch and
// is returned together with the partial report.
func (r *Runner) Run(ctx context.Context, paths []string, progress func(Result)) (*Report, error) {
	report := &Report{OutputDir: r.outDir}

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return report, errors.Wrapf(err, "create output folder %s", r.outDir)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := r.processFile(path)
		report.Results = append(report.Results, res)

		fields := logrus.Fields{"file": path, "faces": len(res.Faces)}
		if res.Err != nil {
			fields["error"] = res.Err.Error()
			r.log.WithFields(fields).Warn("file failed")
		} else {
			fields["output"] = res.Output
			r.log.WithFields(fields).Info("file processed")
		}

		if progress != nil {
			progress(res)
		}

		if errors.Is(res.Err, models.ErrModelMismatch) {
			return report, res.Err
		}
	}

	return report, nil
}

func (r *Runner) processFile(path string) Result {
	res := Result{Input: path}

	frame, err := r.store.Load(path)
	if err != nil {
		res.Err = errors.Wrap(err, "load")
		return res
	}
	defer frame.Close()

	res.Faces, err = r.annotator.Annotate(frame)
	if err != nil {
		res.Err = errors.Wrap(err, "annotate")
		return res
	}

	out := ResultPath(r.outDir, path)
	if err := r.store.Save(out, frame); err != nil {
		res.Err = errors.Wrap(err, "save")
		return res
	}

	res.Output = out
	return res
}

// ResultPath maps dir/photo.jpg to outDir/photo_result.png.
func ResultPath(outDir, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+resultSuffix)
}

func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageFiles lists the images directly inside dir, sorted by name.
func ImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// Expand turns a mix of files and folders into a list of image files.
// Folders contribute their images; explicit files are kept as given.
func Expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		dirFiles, err := ImageFiles(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}
