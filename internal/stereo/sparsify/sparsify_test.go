package sparsify

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// elevated returns a point at range x whose elevation lands in the middle of
// the given beam row for the default 64-beam configuration.
func elevated(x float64, row int) pointcloud.Point {
	theta := (float64(row) + 0.5) * radians(beamPitchDeg)
	return pointcloud.Point{X: x, Y: 0, Z: x * math.Tan(radians(topElevation)-theta)}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 64, cfg.Height)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 1, cfg.Slice)
	assert.Equal(t, Box{MinX: 0, MaxX: 120, MinY: -50, MaxY: 50, MinZ: -2.5, MaxZ: 1.5}, cfg.Crop)
}

func TestNewAngular_FillsDefaults(t *testing.T) {
	a := NewAngular(Config{Crop: DefaultConfig().Crop})
	assert.Equal(t, 64, a.Config().Height)
	assert.Equal(t, 512, a.Config().Width)
	assert.Equal(t, 1, a.Config().Slice)
}

func TestBox_HalfOpen(t *testing.T) {
	b := DefaultConfig().Crop
	assert.True(t, b.Contains(pointcloud.Point{X: 0, Y: -50, Z: -2.5}))
	assert.False(t, b.Contains(pointcloud.Point{X: 120, Y: 0, Z: 0}))
	assert.False(t, b.Contains(pointcloud.Point{X: 1, Y: 50, Z: 0}))
	assert.False(t, b.Contains(pointcloud.Point{X: 1, Y: 0, Z: 1.5}))
	assert.False(t, b.Contains(pointcloud.Point{X: -0.1, Y: 0, Z: 0}))
}

func TestAngular_CropsBeforeBinning(t *testing.T) {
	a := NewAngular(DefaultConfig())
	in := pointcloud.Cloud{
		{X: 130, Y: 0, Z: 0},
		{X: 10, Y: 60, Z: 0},
		{X: 10, Y: 0, Z: 5},
	}
	assert.Empty(t, a.Sparsify(in))
}

func TestAngular_LastPointPerBinWins(t *testing.T) {
	a := NewAngular(DefaultConfig())
	// Same direction, different range: identical elevation and azimuth.
	near := elevated(10, 4)
	far := elevated(20, 4)

	out := a.Sparsify(pointcloud.Cloud{near, far})
	require.Len(t, out, 1)
	assert.Equal(t, far, out[0])

	out = a.Sparsify(pointcloud.Cloud{far, near})
	require.Len(t, out, 1)
	assert.Equal(t, near, out[0])
}

func TestAngular_RowMajorOutput(t *testing.T) {
	a := NewAngular(DefaultConfig())
	low := elevated(10, 19)
	high := elevated(10, 4)

	out := a.Sparsify(pointcloud.Cloud{low, high})
	if diff := cmp.Diff(pointcloud.Cloud{high, low}, out); diff != "" {
		t.Errorf("output order mismatch (-want +got):\n%s", diff)
	}
}

func TestAngular_SliceKeepsEveryNthRow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Slice = 2
	a := NewAngular(cfg)

	even := elevated(10, 4)
	odd := elevated(10, 5)
	out := a.Sparsify(pointcloud.Cloud{even, odd})
	if diff := cmp.Diff(pointcloud.Cloud{even}, out); diff != "" {
		t.Errorf("sliced output mismatch (-want +got):\n%s", diff)
	}
}

func TestAngular_OriginAndSideAreClamped(t *testing.T) {
	a := NewAngular(DefaultConfig())
	out := a.Sparsify(pointcloud.Cloud{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 10, Z: 0},
		{X: 0, Y: -10, Z: 0},
	})
	require.Len(t, out, 3)
	for _, p := range out {
		assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z))
	}
}

func TestAngular_ReducesDenseCloud(t *testing.T) {
	a := NewAngular(DefaultConfig())
	var dense pointcloud.Cloud
	for i := 0; i < 100; i++ {
		for j := 0; j < 100; j++ {
			dense = append(dense, pointcloud.Point{X: 20 + float64(i)*0.001, Y: float64(j) * 0.001, Z: -1})
		}
	}
	out := a.Sparsify(dense)
	assert.NotEmpty(t, out)
	assert.Less(t, len(out), len(dense))
	assert.LessOrEqual(t, len(out), 64*512)
}

func TestAngular_EmptyInput(t *testing.T) {
	out := NewAngular(DefaultConfig()).Sparsify(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFromTuning(t *testing.T) {
	cfg := config.EmptyPipelineConfig()
	_, ok := FromTuning(cfg).(*Angular)
	assert.True(t, ok, "sparsification is on by default")

	off := false
	cfg.SparsifyEnabled = &off
	in := pointcloud.Cloud{{X: 500, Y: 0, Z: 0}}
	s := FromTuning(cfg)
	assert.IsType(t, Passthrough{}, s)
	assert.Equal(t, in, s.Sparsify(in))
}
