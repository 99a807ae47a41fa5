package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/dispio"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pipeline"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

type recordingPublisher struct {
	names []string
}

func (r *recordingPublisher) Publish(name, runID string, res *pipeline.Result) {
	r.names = append(r.names, name)
}

// setupDirs writes one good frame (000001) and one frame without a
// calibration file (000002).
func setupDirs(t *testing.T) (dispDir, calibDir string) {
	root := t.TempDir()
	dispDir = filepath.Join(root, "disp")
	calibDir = filepath.Join(root, "calib")
	require.NoError(t, os.MkdirAll(dispDir, 0755))
	require.NoError(t, os.MkdirAll(calibDir, 0755))

	for _, name := range []string{"000001.png", "000002.png"} {
		f, err := os.Create(filepath.Join(dispDir, name))
		require.NoError(t, err)
		require.NoError(t, dispio.EncodePNG(f, testutil.SinglePixel(40, 30, 20, 10, 6)))
		require.NoError(t, f.Close())
	}
	testutil.WriteFile(t, filepath.Join(dispDir, "notes.txt"), []byte("ignored"))
	testutil.WriteFile(t, filepath.Join(calibDir, "000001.txt"), []byte(testutil.AxisCalibration))
	return dispDir, calibDir
}

func newProcessor(t *testing.T, dispDir, calibDir string) *processor {
	est, err := pipeline.NewEstimator(nil, pipeline.DefaultOptions())
	require.NoError(t, err)
	return &processor{est: est, disparityDir: dispDir, calibDir: calibDir, configJSON: "{}"}
}

func TestProcessor_RecordsFrames(t *testing.T) {
	dispDir, calibDir := setupDirs(t)
	database, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer database.Close()

	pub := &recordingPublisher{}
	p := newProcessor(t, dispDir, calibDir)
	p.store = database
	p.pub = pub

	s, err := p.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []string{"000001"}, pub.names)

	run, err := database.GetRun(s.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.ModeBEV, run.Mode)
	assert.NotNil(t, run.FinishedAt)

	frames, err := database.ListFrames(s.RunID)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "000001.png", frames[0].FrameName)
	assert.Equal(t, 1, frames[0].PointCount)
	assert.Equal(t, 1, frames[0].OccupiedCells)
	assert.Empty(t, frames[0].Error)
	assert.Contains(t, frames[1].Error, "000002.txt")
}

func TestProcessor_RendersChannels(t *testing.T) {
	dispDir, calibDir := setupDirs(t)
	require.NoError(t, os.Remove(filepath.Join(dispDir, "000002.png")))

	p := newProcessor(t, dispDir, calibDir)
	p.outDir = filepath.Join(t.TempDir(), "bev")

	s, err := p.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Succeeded)
	assert.Empty(t, s.RunID)

	for _, name := range []string{"000001_intensity.png", "000001_height.png", "000001_density.png"} {
		info, err := os.Stat(filepath.Join(p.outDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}
}

func TestProcessor_Cancelled(t *testing.T) {
	dispDir, calibDir := setupDirs(t)
	p := newProcessor(t, dispDir, calibDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := p.run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Succeeded+s.Failed)
}

func TestProcessor_MissingDir(t *testing.T) {
	p := newProcessor(t, filepath.Join(t.TempDir(), "nope"), t.TempDir())
	_, err := p.run(context.Background())
	assert.Error(t, err)
}
