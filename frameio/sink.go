package frameio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CallbackSink hands frames to a function. Nil callbacks do nothing
type CallbackSink struct {
	OnFrame func(numFrame int, frame *image.RGBA) error
	OnClose func() error
}

// OutputFrame implements process.Sink
func (sink CallbackSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	if sink.OnFrame == nil {
		return nil
	}
	return sink.OnFrame(numFrame, frame)
}

// Close implements process.Sink
func (sink CallbackSink) Close() error {
	if sink.OnClose == nil {
		return nil
	}
	return sink.OnClose()
}

type discardSink struct{}

func (discardSink) OutputFrame(int, *image.RGBA) error { return nil }
func (discardSink) Close() error                       { return nil }

// DiscardSink drops every frame
var DiscardSink process.Sink = discardSink{}

// CompositeSink outputs every frame to each of its sinks in order.
// Every sink gets the frame even if a previous one failed. The first error is returned
type CompositeSink struct {
	sinks []process.Sink
}

// NewCompositeSink creates composite of at least two sinks
func NewCompositeSink(first, second process.Sink, rest ...process.Sink) *CompositeSink {
	sinks := make([]process.Sink, 0, 2+len(rest))
	sinks = append(sinks, first, second)
	sinks = append(sinks, rest...)
	return &CompositeSink{sinks: sinks}
}

// OutputFrame implements process.Sink
func (composite *CompositeSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	var result error
	for i, sink := range composite.sinks {
		if err := sink.OutputFrame(numFrame, frame); err != nil && result == nil {
			result = errors.Wrapf(err, "Sink %d failed", i)
		}
	}
	return result
}

// Close implements process.Sink
func (composite *CompositeSink) Close() error {
	var result error
	for i, sink := range composite.sinks {
		if err := sink.Close(); err != nil && result == nil {
			result = errors.Wrapf(err, "Can't close sink %d", i)
		}
	}
	return result
}

// LogSink logs every frame it receives
type LogSink struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewLogSink creates sink logging frames at the given level. Nil logger means logrus standard logger
func NewLogSink(logger logrus.FieldLogger, level logrus.Level) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{logger: logger, level: level}
}

// OutputFrame implements process.Sink
func (sink *LogSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	entry := sink.logger.WithFields(logrus.Fields{
		"frame":  numFrame,
		"width":  frame.Bounds().Dx(),
		"height": frame.Bounds().Dy(),
	})
	switch sink.level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug("Frame output")
	case logrus.WarnLevel:
		entry.Warn("Frame output")
	default:
		entry.Info("Frame output")
	}
	return nil
}

// Close implements process.Sink
func (sink *LogSink) Close() error {
	return nil
}

// PNGSink writes every n-th frame into a directory as frame_<index>.png
type PNGSink struct {
	dir   string
	every int
}

// NewPNGSink creates directory if needed. every below 1 means every frame
func NewPNGSink(dir string, every int) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "Can't create directory '%s'", dir)
	}
	return &PNGSink{dir: dir, every: max(every, 1)}, nil
}

// OutputFrame implements process.Sink
func (sink *PNGSink) OutputFrame(numFrame int, frame *image.RGBA) error {
	if numFrame%sink.every != 0 {
		return nil
	}
	path := filepath.Join(sink.dir, fmt.Sprintf("frame_%06d.png", numFrame))
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	if err := png.Encode(file, frame); err != nil {
		file.Close()
		return errors.Wrapf(err, "Can't encode '%s'", path)
	}
	return file.Close()
}

// Close implements process.Sink
func (sink *PNGSink) Close() error {
	return nil
}
