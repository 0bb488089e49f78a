package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facelabel/internal/config"
	"facelabel/internal/controller"
	"facelabel/internal/logger"
	"facelabel/internal/ui"
	"facelabel/processing/batch"
	"facelabel/processing/capture"
	"facelabel/processing/cv"
	processing "facelabel/processing/detector"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "facelabel",
	Short:        "Detect faces and label them with gender and age",
	Version:      Version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if code := runGUI(); code != 0 {
			os.Exit(code)
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to the JSON settings file")
}

// pipeline is the loaded model stack shared by the GUI and batch commands.
type pipeline struct {
	cfg    *config.Config
	log    *logrus.Logger
	models *cv.Models
	remote *processing.RemoteDetector
	proc   *processing.Processor
}

func loadPipeline(path string) (*pipeline, error) {
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	models, err := cv.LoadModels(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "load models")
	}

	p := &pipeline{cfg: cfg, log: log, models: models}

	var faces processing.FaceDetector = models.Cascade
	if cfg.RemoteDetector.Enabled() {
		p.remote = processing.NewRemoteDetector(cfg.RemoteDetector, log)
		faces = p.remote
		log.WithFields(logrus.Fields{"url": cfg.RemoteDetector.URL}).Info("using remote face detector")
	}

	p.proc = processing.NewProcessor(cfg, faces, models.Gender, models.Age, log)

	log.WithFields(logrus.Fields{
		"config":  path,
		"cascade": cfg.FaceCascade,
		"results": cfg.ResultFolder,
	}).Info("models loaded")

	return p, nil
}

func (p *pipeline) runner(outDir string) *batch.Runner {
	if outDir == "" {
		outDir = p.cfg.ResultFolder
	}
	return batch.NewRunner(cv.Store{}, p.proc, outDir, p.log)
}

func (p *pipeline) Close() {
	if p.remote != nil {
		p.remote.Close()
	}
	p.models.Close()
}

func runGUI() int {
	p, err := loadPipeline(configPath)
	if err != nil {
		logger.New(logger.Options{Level: "info"}).
			WithFields(logrus.Fields{"error": err.Error()}).Error("startup failed")
		ui.ShowStartupError(err)
		return 1
	}
	defer p.Close()

	app := ui.CreateApp(p.cfg, p.log)

	ctrl := controller.New(controller.Options{
		OpenCamera: func() (controller.Source, error) {
			return capture.NewSource(capture.SourceCamera, p.cfg.CameraDevice, "")
		},
		OpenImage: func(path string) (controller.Source, error) {
			return capture.NewSource(capture.SourceImage, 0, path)
		},
		Annotator: p.proc,
		Batch:     p.runner(""),
		Interval:  p.cfg.FrameInterval(),
		OnFrame:   app.ShowFrame,
		OnFatal:   app.ShowFatal,
		Log:       p.log,
	})

	return app.Run(ctrl)
}
