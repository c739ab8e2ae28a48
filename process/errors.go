package process

import (
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyRunning is returned by Start when the processor is running or paused
	ErrAlreadyRunning = errors.New("process is already running")
	// ErrNotRunning is returned by Pause and Stop when the processor is not running
	ErrNotRunning = errors.New("process is not running")
	// ErrNotPaused is returned by Resume when the processor is not paused
	ErrNotPaused = errors.New("process is not paused")
	// ErrInvalidAreaOfInterest is returned for areas with negative origin or empty size
	ErrInvalidAreaOfInterest = errors.New("invalid area of interest")
	// ErrUnknownAnalyzer is returned when registry has no analyzer with requested id
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
	// ErrDuplicateAnalyzer is returned when an analyzer id is registered twice
	ErrDuplicateAnalyzer = errors.New("analyzer already registered")
	// ErrInvalidParameter is returned for unknown parameters or values which can't be parsed
	ErrInvalidParameter = errors.New("invalid analyzer parameter")
	// ErrNotSeekable is returned when seeking a source which can't jump between frames
	ErrNotSeekable = errors.New("source is not seekable")
)
