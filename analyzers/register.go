package analyzers

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/LdDl/framepipe/mot"
	"github.com/LdDl/framepipe/process"
	"github.com/pkg/errors"
)

// Identifiers of registered analyzers
const (
	NoChangeID            = "no-change"
	SquareID              = "square"
	ObjectDetectionID     = "object-detection"
	ObjectTrackingID      = "object-tracking"
	RandomSquareID        = "random-square"
	ClassificationID      = "classification"
	TrackingClassifyingID = "tracking-classifying"
)

const (
	defaultBoxColor  = "#00ff00"
	defaultInfoColor = "#ffff00"
)

func styleParameters(order int) []process.ParameterDescriptor {
	return []process.ParameterDescriptor{
		{ID: "box-color", Name: "Box color", Kind: process.ParameterString, Default: defaultBoxColor, Order: order, Hints: []string{"#rrggbb", "r,g,b"}},
		{ID: "box-thickness", Name: "Box thickness", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultBoxThickness), Order: order + 1},
		{ID: "show-scores", Name: "Show scores", Kind: process.ParameterBool, Default: "false", Order: order + 2},
		{ID: "show-class-names", Name: "Show class names", Kind: process.ParameterBool, Default: "false", Order: order + 3},
	}
}

func styleFrom(params process.Params) (Style, error) {
	clr, err := ParseColor(params.String("box-color"))
	if err != nil {
		return Style{}, errors.Wrap(process.ErrInvalidParameter, err.Error())
	}
	return Style{
		Color:          clr,
		Thickness:      params.Int("box-thickness"),
		ShowScores:     params.Bool("show-scores"),
		ShowClassNames: params.Bool("show-class-names"),
	}, nil
}

func trackingParameters() []process.ParameterDescriptor {
	return append([]process.ParameterDescriptor{
		{ID: "window-size", Name: "Window size", Kind: process.ParameterInt, Default: strconv.Itoa(mot.DefaultWindowSize), Order: 0},
		{ID: "matching", Name: "Matching algorithm", Kind: process.ParameterString, Default: mot.MatchingAlgorithmHungarian.String(), Order: 1, Hints: []string{mot.MatchingAlgorithmHungarian.String(), mot.MatchingAlgorithmGreedy.String()}},
		{ID: "min-score", Name: "Minimum matching score", Kind: process.ParameterFloat, Default: "0.3", Order: 2},
		{ID: "grouping", Name: "Intra-frame grouping", Kind: process.ParameterString, Default: "iou", Order: 3, Hints: []string{"iou", "class"}},
		{ID: "group-iou", Name: "Grouping IoU", Kind: process.ParameterFloat, Default: strconv.FormatFloat(DefaultGroupIoU, 'f', -1, 64), Order: 4},
		{ID: "score-threshold", Name: "Score threshold", Kind: process.ParameterFloat, Default: "0", Order: 5},
		{ID: "alert-classes", Name: "Alert classes", Kind: process.ParameterString, Order: 6, Hints: []string{"comma separated class names"}},
		{ID: "keep-lost", Kind: process.ParameterBool, Default: "false", Order: 7, Hidden: true},
	}, styleParameters(8)...)
}

// Register adds every analyzer of the package to the registry.
// Detector is used by object detection and tracking analyzers, classifier by classifying ones.
// Analyzers whose dependency is nil fail on creation.
func Register(registry *process.Registry, detector Detector, classifier Classifier) error {
	definitions := []process.AnalyzerDefinition{
		{
			ID:   NoChangeID,
			Name: "No change",
			New: func(process.Params) (process.Analyzer, error) {
				return process.NoChange, nil
			},
		},
		{
			ID:   SquareID,
			Name: "Frame by frame square",
			Parameters: []process.ParameterDescriptor{
				{ID: "x-step", Name: "Horizontal step", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultSquareStep), Order: 0},
				{ID: "y-step", Name: "Vertical step", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultSquareStep), Order: 1},
				{ID: "box-size", Name: "Box size", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultSquareSize), Order: 2},
				{ID: "box-color", Name: "Box color", Kind: process.ParameterString, Default: defaultBoxColor, Order: 3, Hints: []string{"#rrggbb", "r,g,b"}},
				{ID: "box-thickness", Name: "Box thickness", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultBoxThickness), Order: 4},
			},
			New: func(params process.Params) (process.Analyzer, error) {
				clr, err := ParseColor(params.String("box-color"))
				if err != nil {
					return nil, errors.Wrap(process.ErrInvalidParameter, err.Error())
				}
				return NewSquareAnalyzer(params.Int("x-step"), params.Int("y-step"), params.Int("box-size"), clr, params.Int("box-thickness"), nil), nil
			},
		},
		{
			ID:   ObjectDetectionID,
			Name: "Object detection",
			Parameters: append([]process.ParameterDescriptor{
				{ID: "threshold", Name: "Threshold", Kind: process.ParameterFloat, Default: "0.5", Order: 0},
			}, styleParameters(1)...),
			New: func(params process.Params) (process.Analyzer, error) {
				style, err := styleFrom(params)
				if err != nil {
					return nil, err
				}
				analyzer, err := NewObjectDetectionAnalyzer(detector, params.Float("threshold"), style, nil)
				if err != nil {
					return nil, err
				}
				return analyzer, nil
			},
		},
		{
			ID:   ObjectTrackingID,
			Name: "Object tracking",
			Parameters: trackingParameters(),
			New: func(params process.Params) (process.Analyzer, error) {
				opts, err := trackingOptions(params)
				if err != nil {
					return nil, err
				}
				analyzer, err := NewObjectTrackingAnalyzer(detector, params.Int("window-size"), nil, opts...)
				if err != nil {
					return nil, err
				}
				return analyzer, nil
			},
		},
		{
			ID:   RandomSquareID,
			Name: "Random square",
			Parameters: []process.ParameterDescriptor{
				{ID: "box-size", Name: "Box size", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultSquareSize), Order: 0},
				{ID: "box-color", Name: "Box color", Kind: process.ParameterString, Default: defaultBoxColor, Order: 1, Hints: []string{"#rrggbb", "r,g,b"}},
				{ID: "box-thickness", Name: "Box thickness", Kind: process.ParameterInt, Default: strconv.Itoa(DefaultBoxThickness), Order: 2},
				{ID: "seed", Name: "Random seed", Kind: process.ParameterInt, Default: "0", Order: 3, Hints: []string{"0 picks a random seed"}},
			},
			New: func(params process.Params) (process.Analyzer, error) {
				clr, err := ParseColor(params.String("box-color"))
				if err != nil {
					return nil, errors.Wrap(process.ErrInvalidParameter, err.Error())
				}
				seed := uint64(params.Int("seed"))
				if seed == 0 {
					seed = rand.Uint64()
				}
				return NewRandomSquareAnalyzer(params.Int("box-size"), clr, params.Int("box-thickness"), seed, nil), nil
			},
		},
		{
			ID:   ClassificationID,
			Name: "Classification",
			Parameters: []process.ParameterDescriptor{
				{ID: "info-color", Name: "Info color", Kind: process.ParameterString, Default: defaultInfoColor, Order: 0, Hints: []string{"#rrggbb", "r,g,b"}},
			},
			New: func(params process.Params) (process.Analyzer, error) {
				clr, err := ParseColor(params.String("info-color"))
				if err != nil {
					return nil, errors.Wrap(process.ErrInvalidParameter, err.Error())
				}
				analyzer, err := NewClassificationAnalyzer(classifier, clr, nil)
				if err != nil {
					return nil, err
				}
				return analyzer, nil
			},
		},
		{
			ID:         TrackingClassifyingID,
			Name:       "Object tracking and classifying",
			Parameters: trackingParameters(),
			New: func(params process.Params) (process.Analyzer, error) {
				opts, err := trackingOptions(params)
				if err != nil {
					return nil, err
				}
				analyzer, err := NewTrackingClassifyingAnalyzer(detector, classifier, params.Int("window-size"), nil, opts...)
				if err != nil {
					return nil, err
				}
				return analyzer, nil
			},
		},
	}
	for _, definition := range definitions {
		if err := registry.Register(definition); err != nil {
			return err
		}
	}
	return nil
}

// trackingOptions builds tracker options from parameters described by trackingParameters
func trackingOptions(params process.Params) ([]TrackingOption, error) {
	algorithm, err := mot.ParseMatchingAlgorithm(params.String("matching"))
	if err != nil {
		return nil, errors.Wrap(process.ErrInvalidParameter, err.Error())
	}
	style, err := styleFrom(params)
	if err != nil {
		return nil, err
	}
	opts := []TrackingOption{
		WithMatcher(mot.NewMatcher(params.Float("min-score"), algorithm)),
		WithStyle(style),
		WithScoreThreshold(params.Float("score-threshold")),
	}
	switch params.String("grouping") {
	case "iou":
		opts = append(opts, WithGrouper(mot.IoUGrouper{Threshold: params.Float("group-iou")}))
	case "class":
		opts = append(opts, WithGrouper(mot.ClassGrouper{}))
	default:
		return nil, errors.Wrapf(process.ErrInvalidParameter, "unknown grouping '%s'", params.String("grouping"))
	}
	if classes := params.String("alert-classes"); classes != "" {
		names := strings.Split(classes, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		opts = append(opts, WithAlertClasses(names...))
	}
	if params.Bool("keep-lost") {
		opts = append(opts, WithInvalid(mot.KeepAll))
	}
	return opts, nil
}
