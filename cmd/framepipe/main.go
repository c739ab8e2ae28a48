package main

import (
	"flag"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/framepipe/analyzers"
	"github.com/LdDl/framepipe/config"
	"github.com/LdDl/framepipe/frameio"
	"github.com/LdDl/framepipe/process"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "Path to JSON configuration. Defaults are used when empty")
	listOnly   = flag.Bool("list", false, "List registered analyzers and exit")
)

var boxColor = color.RGBA{R: 230, G: 40, B: 40, A: 255}

func main() {
	flag.Parse()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("Can't load configuration")
		}
		cfg = loaded
	}
	logrus.SetLevel(cfg.Level())

	registry := process.NewRegistry()
	detector := analyzers.ColorDetector{Target: boxColor, Tolerance: 20, ClassName: "box", MinArea: 16}
	classifier := analyzers.NearestColorClassifier{Palette: []analyzers.PaletteColor{
		{ClassName: "box", Color: boxColor},
		{ClassName: "background", Color: color.RGBA{A: 255}},
	}}
	if err := analyzers.Register(registry, detector, classifier); err != nil {
		logrus.WithError(err).Fatal("Can't register analyzers")
	}
	if *listOnly {
		for _, definition := range registry.List() {
			entry := logrus.WithField("id", definition.ID)
			for _, parameter := range definition.Parameters {
				if !parameter.Hidden {
					entry = entry.WithField(parameter.ID, parameter.Default)
				}
			}
			entry.Info(definition.Name)
		}
		return
	}

	analyzer, err := registry.Build(*cfg.Analyzer, cfg.AnalyzerParams())
	if err != nil {
		logrus.WithError(err).Fatal("Can't build analyzer")
	}
	source, err := newSource(cfg.Source)
	if err != nil {
		logrus.WithError(err).Fatal("Can't create source")
	}
	sink, err := newSink(*cfg.OutputDir)
	if err != nil {
		logrus.WithError(err).Fatal("Can't create sink")
	}

	logger := logrus.WithField("component", "framepipe")
	var (
		processor *process.FrameProcessor
		stop      func() error
		join      = func() {}
	)
	if *cfg.Async {
		async, err := process.NewAsyncAnalyzerProcessor(source, sink, analyzer, cfg.AnalysisOptions(), *cfg.Workers, process.WithLogger(logger))
		if err != nil {
			logrus.WithError(err).Fatal("Can't create processor")
		}
		processor, stop, join = async.FrameProcessor, async.StopAndJoin, async.Join
		defer func() {
			stats := async.Stats()
			logrus.WithFields(logrus.Fields{
				"published": stats.Published,
				"dropped":   stats.Dropped,
				"analyzed":  stats.Analyzed,
				"failed":    stats.Failed,
				"mean":      async.AnalysisTiming().Mean(),
			}).Info("Analysis statistics")
		}()
	} else {
		synchronous, err := process.NewAnalyzerProcessor(source, sink, analyzer, cfg.AnalysisOptions(), process.WithLogger(logger))
		if err != nil {
			logrus.WithError(err).Fatal("Can't create processor")
		}
		processor, stop = synchronous.FrameProcessor, synchronous.StopAndWait
		defer func() {
			logrus.WithField("mean", synchronous.AnalysisTiming().Mean()).Info("Analysis statistics")
		}()
	}
	defer func() {
		if err := processor.Close(); err != nil {
			logrus.WithError(err).Warn("Can't close processor")
		}
	}()

	processor.AddListener(func(event process.Event) {
		switch event.Kind {
		case process.EventFrameInputted, process.EventFrameOutputted:
			return
		}
		logrus.WithFields(logrus.Fields{
			"event":     event.Kind.String(),
			"processor": event.ProcessorID,
			"frame":     event.NumFrame,
		}).Info("Processor event")
	})

	if err := processor.Start(); err != nil {
		logrus.WithError(err).Fatal("Can't start processor")
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	select {
	case <-processor.Done():
		join()
	case sig := <-signals:
		logrus.WithField("signal", sig.String()).Info("Shutting down")
		if err := stop(); err != nil {
			logrus.WithError(err).Warn("Can't stop processor")
		}
	}
	tracking, ok := analyzer.(*analyzers.ObjectTrackingAnalyzer)
	if classifying, isClassifying := analyzer.(*analyzers.TrackingClassifyingAnalyzer); isClassifying {
		tracking, ok = classifying.Tracker(), true
	}
	if ok {
		for _, object := range tracking.TrackedObjects().Objects() {
			logrus.WithFields(logrus.Fields{
				"id":         object.ShortID(),
				"class":      object.ClassName(),
				"detections": object.CountObjectDetections(),
			}).Info(object.String())
		}
	}
}

func newSource(cfg *config.Source) (*frameio.SyntheticSource, error) {
	width, height := *cfg.Width, *cfg.Height
	boxes := make([]frameio.MovingBox, 0, *cfg.Boxes)
	side := max(min(width, height)/8, 4)
	for i := 0; i < *cfg.Boxes; i++ {
		x := (i * 2 * side) % max(width-side, 1)
		y := (i * side) % max(height-side, 1)
		boxes = append(boxes, frameio.MovingBox{
			Color: boxColor,
			Rect:  image.Rect(x, y, x+side, y+side),
			DX:    2 + i%3,
			DY:    1 + i%2,
		})
	}
	opts := []frameio.SyntheticOption{frameio.WithFrameLimit(*cfg.Frames)}
	if *cfg.RealTime {
		opts = append(opts, frameio.WithRealTime())
	}
	return frameio.NewSyntheticSource(width, height, *cfg.FPS, boxes, opts...)
}

func newSink(outputDir string) (process.Sink, error) {
	logSink := frameio.NewLogSink(logrus.WithField("component", "sink"), logrus.DebugLevel)
	if outputDir == "" {
		return logSink, nil
	}
	pngSink, err := frameio.NewPNGSink(outputDir, 1)
	if err != nil {
		return nil, err
	}
	return frameio.NewCompositeSink(logSink, pngSink), nil
}
