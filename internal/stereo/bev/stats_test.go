package bev

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

func TestRasterStats(t *testing.T) {
	r, err := MakeBEVMap(pointcloud.Cloud{
		{X: 1.5, Y: 0, Z: 1},
		{X: 2.5, Y: 0, Z: 3},
	}, unitGrid())
	require.NoError(t, err)

	s := r.Stats()
	assert.Equal(t, 100, s.Cells)
	assert.Equal(t, 2, s.OccupiedCells)
	assert.InDelta(t, 0.02, s.Occupancy, 1e-12)
	assert.InDelta(t, 0.5, s.MeanHeight, 1e-7)
	assert.InDelta(t, 0.75, s.MaxHeight, 1e-7)
	assert.Greater(t, s.StdHeight, 0.0)
	assert.InDelta(t, 0.0, s.StdDensity, 1e-7)
}

func TestRasterStats_EmptyAndSingle(t *testing.T) {
	empty, err := MakeBEVMap(nil, unitGrid())
	require.NoError(t, err)
	assert.Equal(t, Stats{Cells: 100}, empty.Stats())

	one, err := MakeBEVMap(pointcloud.Cloud{{X: 0.5, Y: 0, Z: 2}}, unitGrid())
	require.NoError(t, err)
	s := one.Stats()
	assert.Equal(t, 1, s.OccupiedCells)
	assert.InDelta(t, 0.5, s.MeanHeight, 1e-7)
	assert.Zero(t, s.StdHeight)
}

func TestChannelGrid(t *testing.T) {
	r, err := MakeBEVMap(pointcloud.Cloud{{X: 3.5, Y: -4.5, Z: 2}}, unitGrid())
	require.NoError(t, err)

	g := r.Grid(ChannelHeight)
	c, rows := g.Dims()
	assert.Equal(t, 10, c)
	assert.Equal(t, 10, rows)
	assert.Equal(t, 0.5, g.Z(0, 3))
	assert.Equal(t, 0.0, g.Z(3, 0))
	assert.Equal(t, 4.0, g.X(4))
	assert.Equal(t, 2.0, g.Y(2))
}

func TestRenderChannelPNG(t *testing.T) {
	r, err := MakeBEVMap(pointcloud.Cloud{{X: 3.5, Y: 0, Z: 2}, {X: 6.5, Y: 2, Z: 1}}, unitGrid())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "height.png")
	require.NoError(t, RenderChannelPNG(r, ChannelHeight, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderChannelPNG_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, RenderChannelPNG(NewRaster(2, 2), Channel(5), filepath.Join(dir, "x.png")))
	assert.Error(t, RenderChannelPNG(NewRaster(0, 0), ChannelHeight, filepath.Join(dir, "y.png")))
}
