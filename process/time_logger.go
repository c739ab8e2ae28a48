package process

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// DefaultTimeLoggerWindow is number of measurements TimeLogger averages over
const DefaultTimeLoggerWindow = 50

// TimeLogger measures durations of a repeated step and logs each one along with the moving mean
type TimeLogger struct {
	name   string
	logger logrus.FieldLogger
	window int
	now    func() time.Time

	mu sync.Mutex
	// nanos are kept as float64 for gonum
	nanos []float64
}

// NewTimeLogger creates TimeLogger. Nil logger means logrus standard logger
func NewTimeLogger(name string, logger logrus.FieldLogger, window int) *TimeLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if window <= 0 {
		window = DefaultTimeLoggerWindow
	}
	return &TimeLogger{
		name:    name,
		logger:  logger,
		window:  window,
		now:     time.Now,
		nanos:   make([]float64, 0, window),
	}
}

// Track starts measuring. Call the returned function when the step is over
func (tl *TimeLogger) Track() func() {
	start := tl.now()
	return func() {
		tl.Observe(tl.now().Sub(start))
	}
}

// Observe records a single duration
func (tl *TimeLogger) Observe(elapsed time.Duration) {
	tl.mu.Lock()
	tl.nanos = append(tl.nanos, float64(elapsed))
	if len(tl.nanos) > tl.window {
		tl.nanos = tl.nanos[1:]
	}
	mean := time.Duration(stat.Mean(tl.nanos, nil))
	tl.mu.Unlock()

	tl.logger.WithFields(logrus.Fields{
		"step":    tl.name,
		"elapsed": elapsed,
		"mean":    mean,
	}).Debug("Step timing")
}

// Mean returns mean duration over the window
func (tl *TimeLogger) Mean() time.Duration {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.nanos) == 0 {
		return 0
	}
	return time.Duration(stat.Mean(tl.nanos, nil))
}

// Count returns number of measurements in the window
func (tl *TimeLogger) Count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.nanos)
}
