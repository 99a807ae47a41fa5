package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/timeutil"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	// nil installs a no-op logger
	SetLogger(nil)
	Logf("test message")
}

func TestTimer_MarkAndTotal(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tm := NewTimerWithClock(clock)

	clock.Advance(2 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, tm.Mark("reconstruct"))
	clock.Advance(3 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, tm.Mark("sparsify"))
	clock.Advance(6 * time.Millisecond)
	assert.Equal(t, 6*time.Millisecond, tm.Mark("rasterize"))

	assert.Equal(t, 11*time.Millisecond, tm.Total())
	stages := tm.Stages()
	if assert.Len(t, stages, 3) {
		assert.Equal(t, "sparsify", stages[1].Stage)
		assert.InDelta(t, 3.0, stages[1].Millis(), 1e-9)
	}
	assert.Equal(t, "reconstruct=2.00ms sparsify=3.00ms rasterize=6.00ms", tm.String())
}

func TestTimer_Log(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	tm := NewTimerWithClock(clock)
	clock.Advance(time.Millisecond)
	tm.Mark("filter")
	tm.Log("frame 000001:")

	assert.Equal(t, "frame 000001: filter=1.00ms total=1.00ms", got)
}

func TestRedirectToFile(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	path := filepath.Join(t.TempDir(), "stereo.log")
	closer, err := RedirectToFile(path)
	require.NoError(t, err)
	Logf("frame %s done", "000001")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame 000001 done")

	_, err = RedirectToFile(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}
