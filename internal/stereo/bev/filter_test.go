package bev

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

func TestDefaultBoundary(t *testing.T) {
	b := DefaultBoundary()
	assert.Equal(t, Boundary{MinX: 0, MaxX: 50, MinY: -25, MaxY: 25, MinZ: -2.73, MaxZ: 1.27}, b)
	assert.InDelta(t, 4.0, b.Height(), 1e-12)
}

func TestFilterLidar(t *testing.T) {
	t.Parallel()
	b := Boundary{MinX: 0, MaxX: 10, MinY: -5, MaxY: 5, MinZ: -2, MaxZ: 2}

	tests := []struct {
		name string
		in   pointcloud.Cloud
		want pointcloud.Cloud
	}{
		{"empty", nil, pointcloud.Cloud{}},
		{
			"inclusive bounds",
			pointcloud.Cloud{{X: 0, Y: -5, Z: -2}, {X: 10, Y: 5, Z: 2}},
			pointcloud.Cloud{{X: 0, Y: -5, Z: 0}, {X: 10, Y: 5, Z: 4}},
		},
		{
			"outside on each axis",
			pointcloud.Cloud{{X: -0.01}, {X: 10.01}, {X: 1, Y: 5.5}, {X: 1, Y: -5.5}, {X: 1, Z: 2.1}, {X: 1, Z: -2.1}},
			pointcloud.Cloud{},
		},
		{
			"order preserved",
			pointcloud.Cloud{{X: 3, Y: 1, Z: 1}, {X: 20}, {X: 1, Y: -1, Z: -1}},
			pointcloud.Cloud{{X: 3, Y: 1, Z: 3}, {X: 1, Y: -1, Z: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterLidar(tt.in, b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterLidar() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterLidar_RetainedPointsInShiftedBox(t *testing.T) {
	b := DefaultBoundary()
	var in pointcloud.Cloud
	for x := -10.0; x <= 60; x += 2.5 {
		for y := -30.0; y <= 30; y += 2.5 {
			for z := -4.0; z <= 3; z += 0.5 {
				in = append(in, pointcloud.Point{X: x, Y: y, Z: z})
			}
		}
	}

	out := FilterLidar(in, b)
	assert.NotEmpty(t, out)
	assert.Less(t, len(out), len(in))
	for _, p := range out {
		assert.True(t, p.X >= b.MinX && p.X <= b.MaxX, "x out of range: %v", p)
		assert.True(t, p.Y >= b.MinY && p.Y <= b.MaxY, "y out of range: %v", p)
		assert.True(t, p.Z >= 0 && p.Z <= b.Height()+1e-9, "z out of range: %v", p)
	}
}

func TestFilterLidar_DoesNotMutateInput(t *testing.T) {
	in := pointcloud.Cloud{{X: 1, Y: 0, Z: 0}}
	before := in.Clone()
	_ = FilterLidar(in, DefaultBoundary())
	assert.Equal(t, before, in)
}
