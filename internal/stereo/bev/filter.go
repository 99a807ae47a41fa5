package bev

import (
	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// Boundary is an axis-aligned region of interest in LiDAR coordinates.
// All bounds are inclusive.
type Boundary struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// DefaultBoundary is the 50 m x 50 m forward region used for KITTI.
func DefaultBoundary() Boundary {
	return BoundaryFromTuning(config.EmptyPipelineConfig())
}

// BoundaryFromTuning reads the region of interest from a PipelineConfig.
func BoundaryFromTuning(cfg *config.PipelineConfig) Boundary {
	return Boundary{
		MinX: cfg.GetBoundaryMinX(), MaxX: cfg.GetBoundaryMaxX(),
		MinY: cfg.GetBoundaryMinY(), MaxY: cfg.GetBoundaryMaxY(),
		MinZ: cfg.GetBoundaryMinZ(), MaxZ: cfg.GetBoundaryMaxZ(),
	}
}

// Contains reports whether p lies inside b.
func (b Boundary) Contains(p pointcloud.Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY &&
		p.Z >= b.MinZ && p.Z <= b.MaxZ
}

// Height is the vertical extent of the region.
func (b Boundary) Height() float64 { return b.MaxZ - b.MinZ }

// FilterLidar returns the points of cloud that fall inside b, with z shifted
// by -MinZ. The input is left untouched; the result may be empty.
func FilterLidar(cloud pointcloud.Cloud, b Boundary) pointcloud.Cloud {
	out := make(pointcloud.Cloud, 0, len(cloud))
	for _, p := range cloud {
		if !b.Contains(p) {
			continue
		}
		p.Z -= b.MinZ
		out = append(out, p)
	}
	return out
}
