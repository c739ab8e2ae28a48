package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// boxPredictor estimates where a tracked object's box will be on the next analyzed frame.
// It wraps 8-D Kalman filter with state [cx, cy, w, h, vx, vy, vw, vh].
type boxPredictor struct {
	filter    *kalman_filter.KalmanBBox
	predicted Box
	lastFrame int
}

// newBoxPredictor creates predictor initialized with the given box
func newBoxPredictor(box Box, numFrame int, dt float64) *boxPredictor {
	center := box.Center()

	// Kalman filter props
	uCx := 1.0
	uCy := 1.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kf := kalman_filter.NewKalmanBBox(
		dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, box.Width(), box.Height()),
	)
	return &boxPredictor{
		filter:    kf,
		predicted: box,
		lastFrame: numFrame,
	}
}

// predict executes Kalman filter prediction step and returns predicted box
func (predictor *boxPredictor) predict() Box {
	predictor.filter.Predict()
	cx, cy, w, h := predictor.filter.GetState()
	predictor.predicted = NewBoxFromCenter(cx, cy, w, h)
	return predictor.predicted
}

// update executes Kalman filter update step with the observed box
func (predictor *boxPredictor) update(box Box, numFrame int) error {
	center := box.Center()
	err := predictor.filter.Update(center.X, center.Y, box.Width(), box.Height())
	if err != nil {
		return errors.Wrap(err, "Can't update box predictor")
	}
	cx, cy, w, h := predictor.filter.GetState()
	predictor.predicted = NewBoxFromCenter(cx, cy, w, h)
	predictor.lastFrame = numFrame
	return nil
}

// velocity returns current velocity estimates (vx, vy, vw, vh)
func (predictor *boxPredictor) velocity() (float64, float64, float64, float64) {
	return predictor.filter.GetVelocity()
}
