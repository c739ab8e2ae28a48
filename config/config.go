// Package config loads pipeline configuration from JSON documents.
// Omitted fields keep their defaults, so partial documents are fine.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LdDl/framepipe/analyzers"
	"github.com/LdDl/framepipe/mot"
	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAnalyzer is used when the document names none
	DefaultAnalyzer = analyzers.ObjectTrackingID
	// DefaultWorkers is number of analysis workers of asynchronous pipeline
	DefaultWorkers = 1
	// DefaultLogLevel is used when the document names none
	DefaultLogLevel = "info"

	maxFileSize = 1 * 1024 * 1024
)

// AreaOfInterest is JSON form of process.AreaOfInterest
type AreaOfInterest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Source describes synthetic frames of the demo pipeline
type Source struct {
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
	FPS      *float64 `json:"fps,omitempty"`
	Frames   *int     `json:"frames,omitempty"` // 0 is unlimited
	Boxes    *int     `json:"boxes,omitempty"`
	RealTime *bool    `json:"real_time,omitempty"`
}

// Config is root of pipeline configuration
type Config struct {
	Analyzer                *string           `json:"analyzer,omitempty"`
	Params                  map[string]string `json:"params,omitempty"`
	Async                   *bool             `json:"async,omitempty"`
	Workers                 *int              `json:"workers,omitempty"`
	FrameRatio              *int              `json:"frame_ratio,omitempty"`
	ModificationPersistence *int              `json:"modification_persistence,omitempty"`
	WindowSize              *int              `json:"window_size,omitempty"`
	AreaOfInterest          *AreaOfInterest   `json:"area_of_interest,omitempty"`
	LogLevel                *string           `json:"log_level,omitempty"`
	OutputDir               *string           `json:"output_dir,omitempty"`
	Source                  *Source           `json:"source,omitempty"`
}

func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// Defaults returns configuration with every field set
func Defaults() *Config {
	return &Config{
		Analyzer:                ptrString(DefaultAnalyzer),
		Params:                  map[string]string{},
		Async:                   ptrBool(true),
		Workers:                 ptrInt(DefaultWorkers),
		FrameRatio:              ptrInt(1),
		ModificationPersistence: ptrInt(0),
		WindowSize:              ptrInt(mot.DefaultWindowSize),
		LogLevel:                ptrString(DefaultLogLevel),
		OutputDir:               ptrString(""),
		Source: &Source{
			Width:    ptrInt(320),
			Height:   ptrInt(240),
			FPS:      ptrFloat64(25),
			Frames:   ptrInt(250),
			Boxes:    ptrInt(3),
			RealTime: ptrBool(true),
		},
	}
}

// Load reads configuration from a JSON file and fills omitted fields with defaults.
// The file must have .json extension and be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file '%s' must have .json extension, got %q", cleanPath, ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't stat config file '%s'", cleanPath)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file '%s' is too large: %d bytes (max %d)", cleanPath, fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read config file '%s'", cleanPath)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Can't parse config file '%s'", cleanPath)
	}
	cfg.fill(Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Invalid config file '%s'", cleanPath)
	}
	return cfg, nil
}

// fill sets every nil field to the one of defaults
func (cfg *Config) fill(defaults *Config) {
	if cfg.Analyzer == nil {
		cfg.Analyzer = defaults.Analyzer
	}
	if cfg.Params == nil {
		cfg.Params = defaults.Params
	}
	if cfg.Async == nil {
		cfg.Async = defaults.Async
	}
	if cfg.Workers == nil {
		cfg.Workers = defaults.Workers
	}
	if cfg.FrameRatio == nil {
		cfg.FrameRatio = defaults.FrameRatio
	}
	if cfg.ModificationPersistence == nil {
		cfg.ModificationPersistence = defaults.ModificationPersistence
	}
	if cfg.WindowSize == nil {
		cfg.WindowSize = defaults.WindowSize
	}
	if cfg.LogLevel == nil {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.OutputDir == nil {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.Source == nil {
		cfg.Source = &Source{}
	}
	source, fallback := cfg.Source, defaults.Source
	if source.Width == nil {
		source.Width = fallback.Width
	}
	if source.Height == nil {
		source.Height = fallback.Height
	}
	if source.FPS == nil {
		source.FPS = fallback.FPS
	}
	if source.Frames == nil {
		source.Frames = fallback.Frames
	}
	if source.Boxes == nil {
		source.Boxes = fallback.Boxes
	}
	if source.RealTime == nil {
		source.RealTime = fallback.RealTime
	}
}

// Validate checks values which are set
func (cfg *Config) Validate() error {
	if cfg.Analyzer != nil && *cfg.Analyzer == "" {
		return errors.New("analyzer must not be empty")
	}
	if cfg.Workers != nil && *cfg.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", *cfg.Workers)
	}
	if cfg.WindowSize != nil && *cfg.WindowSize < 1 {
		return errors.Wrapf(mot.ErrInvalidWindowSize, "window_size %d", *cfg.WindowSize)
	}
	if err := cfg.AnalysisOptions().Validate(); err != nil {
		return err
	}
	if cfg.LogLevel != nil {
		if _, err := logrus.ParseLevel(*cfg.LogLevel); err != nil {
			return errors.Wrapf(err, "bad log_level")
		}
	}
	if source := cfg.Source; source != nil {
		if (source.Width != nil && *source.Width < 1) || (source.Height != nil && *source.Height < 1) {
			return errors.New("source width and height must be positive")
		}
		if source.FPS != nil && *source.FPS <= 0 {
			return errors.Errorf("source fps must be positive, got %f", *source.FPS)
		}
		if source.Frames != nil && *source.Frames < 0 {
			return errors.Errorf("source frames must not be negative, got %d", *source.Frames)
		}
		if source.Boxes != nil && *source.Boxes < 0 {
			return errors.Errorf("source boxes must not be negative, got %d", *source.Boxes)
		}
	}
	return nil
}

// AnalysisOptions converts sampling, persistence and area of interest
func (cfg *Config) AnalysisOptions() process.AnalysisOptions {
	opts := process.AnalysisOptions{}
	if cfg.FrameRatio != nil {
		opts.FrameRatio = *cfg.FrameRatio
	}
	if cfg.ModificationPersistence != nil {
		opts.ModificationPersistence = *cfg.ModificationPersistence
	}
	if area := cfg.AreaOfInterest; area != nil {
		opts.AreaOfInterest = &process.AreaOfInterest{X: area.X, Y: area.Y, Width: area.Width, Height: area.Height}
	}
	return opts
}

// AnalyzerParams returns parameters handed to the registry.
// window_size is passed to the tracking analyzers unless params set it explicitly.
func (cfg *Config) AnalyzerParams() map[string]string {
	params := make(map[string]string, len(cfg.Params)+1)
	for key, value := range cfg.Params {
		params[key] = value
	}
	tracking := cfg.Analyzer != nil && (*cfg.Analyzer == analyzers.ObjectTrackingID || *cfg.Analyzer == analyzers.TrackingClassifyingID)
	if tracking && cfg.WindowSize != nil {
		if _, ok := params["window-size"]; !ok {
			params["window-size"] = strconv.Itoa(*cfg.WindowSize)
		}
	}
	return params
}

// Level returns parsed log level. Unset or bad level means info
func (cfg *Config) Level() logrus.Level {
	if cfg.LogLevel == nil {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(*cfg.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
