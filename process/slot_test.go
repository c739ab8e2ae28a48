package process

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModificationSlotPersistence(t *testing.T) {
	opts := AnalysisOptions{ModificationPersistence: 2}
	slot := newModificationSlot()
	require.True(t, slot.store(0, tagModification(1), opts.uses()))

	for i := 0; i < 3; i++ {
		_, numFrame, ok := slot.take()
		require.True(t, ok, "use %d", i)
		assert.Equal(t, 0, numFrame)
	}
	_, _, ok := slot.take()
	assert.False(t, ok)
}

func TestModificationSlotDiscardsStale(t *testing.T) {
	slot := newModificationSlot()
	require.True(t, slot.store(5, tagModification(5), 1))
	assert.False(t, slot.store(3, tagModification(3), 1))

	_, numFrame, ok := slot.take()
	require.True(t, ok)
	assert.Equal(t, 5, numFrame)

	slot.clear()
	assert.True(t, slot.store(3, tagModification(3), 1))
}

func TestAnalysisOptionsUses(t *testing.T) {
	tests := []struct {
		opts AnalysisOptions
		uses int
	}{
		{AnalysisOptions{}, 1},
		{AnalysisOptions{ModificationPersistence: 2}, 3},
		{AnalysisOptions{FrameRatio: 3}, 3},
		{AnalysisOptions{FrameRatio: 2, ModificationPersistence: 4}, 5},
		{AnalysisOptions{FrameRatio: 1, ModificationPersistence: 0}, 1},
	}
	for _, test := range tests {
		assert.Equal(t, test.uses, test.opts.uses(), "%+v", test.opts)
	}

	sampled := AnalysisOptions{FrameRatio: 3}
	assert.True(t, sampled.shouldAnalyze(0))
	assert.False(t, sampled.shouldAnalyze(1))
	assert.True(t, sampled.shouldAnalyze(6))
	assert.True(t, AnalysisOptions{}.shouldAnalyze(7))

	assert.Error(t, AnalysisOptions{FrameRatio: -1}.Validate())
	assert.Error(t, AnalysisOptions{ModificationPersistence: -1}.Validate())
	assert.ErrorIs(t, AnalysisOptions{AreaOfInterest: &AreaOfInterest{Width: 0, Height: 1}}.Validate(), ErrInvalidAreaOfInterest)
}

func TestStageSwapClearsSlot(t *testing.T) {
	stage, err := newAnalysisStage(nil, AnalysisOptions{ModificationPersistence: 10}, logrus.StandardLogger())
	require.NoError(t, err)
	assert.Equal(t, NoChange, stage.currentAnalyzer())

	require.True(t, stage.analyze(0, newTestFrame(1, 1, color.RGBA{})))
	_, _, ok := stage.slot.take()
	require.True(t, ok)

	_, changed := stage.swap(NoChange)
	assert.False(t, changed)
	_, _, ok = stage.slot.take()
	assert.True(t, ok, "same analyzer keeps modification")

	old, changed := stage.swap(AnalyzerFunc(func(int, *image.RGBA) (Modification, error) {
		return NoModification, nil
	}))
	assert.True(t, changed)
	assert.Equal(t, NoChange, old)
	_, _, ok = stage.slot.take()
	assert.False(t, ok)
}

func TestStageAnalyzerFailure(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	stage, err := newAnalysisStage(AnalyzerFunc(func(int, *image.RGBA) (Modification, error) {
		return nil, assert.AnError
	}), AnalysisOptions{}, logger)
	require.NoError(t, err)

	frame := newTestFrame(2, 2, color.RGBA{R: 3, A: 255})
	assert.False(t, stage.analyze(0, frame))
	assert.Same(t, frame, stage.apply(0, frame))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestMailboxNewestWins(t *testing.T) {
	box := newMailbox()
	first := newTestFrame(1, 1, color.RGBA{R: 1})
	second := newTestFrame(1, 1, color.RGBA{R: 2})
	box.publish(0, first)
	box.publish(2, second)

	numFrame, frame, ok := box.take()
	require.True(t, ok)
	assert.Equal(t, 2, numFrame)
	assert.Same(t, second, frame)
	assert.Equal(t, uint64(2), box.published)
	assert.Equal(t, uint64(1), box.drops)

	taken := make(chan bool)
	go func() {
		_, _, ok := box.take()
		taken <- ok
	}()
	box.close()
	select {
	case ok := <-taken:
		assert.False(t, ok)
	case <-time.After(testTimeout):
		t.Fatal("Closing mailbox did not wake the taker")
	}

	box.reopen()
	box.publish(4, first)
	numFrame, _, ok = box.take()
	assert.True(t, ok)
	assert.Equal(t, 4, numFrame)
}

func TestTimeLogger(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	timing := NewTimeLogger("analyze", logger, 2)

	timing.Observe(10 * time.Millisecond)
	timing.Observe(20 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, timing.Mean())
	timing.Observe(40 * time.Millisecond)
	assert.Equal(t, 2, timing.Count())
	assert.Equal(t, 30*time.Millisecond, timing.Mean())

	require.Len(t, hook.AllEntries(), 3)
	entry := hook.LastEntry()
	assert.Equal(t, "analyze", entry.Data["step"])
	assert.Equal(t, 40*time.Millisecond, entry.Data["elapsed"])

	var clock time.Time
	timing.now = func() time.Time {
		return clock
	}
	stop := timing.Track()
	clock = clock.Add(40 * time.Millisecond)
	stop()
	assert.Equal(t, 40*time.Millisecond, timing.Mean())

	empty := NewTimeLogger("empty", nil, 0)
	assert.Equal(t, time.Duration(0), empty.Mean())
}
