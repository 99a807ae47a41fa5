package sparsify

import (
	"math"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// Sparsifier reduces the density of a point cloud.
type Sparsifier interface {
	Sparsify(cloud pointcloud.Cloud) pointcloud.Cloud
}

// Box is a half-open crop volume: min <= v < max on every axis.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p pointcloud.Point) bool {
	return p.X >= b.MinX && p.X < b.MaxX &&
		p.Y >= b.MinY && p.Y < b.MaxY &&
		p.Z >= b.MinZ && p.Z < b.MaxZ
}

// Config describes the emulated sensor.
type Config struct {
	Height int // elevation bins (beams)
	Width  int // azimuth bins over the 90° forward field of view
	Slice  int // keep every Slice-th elevation row
	Crop   Box // applied before binning
}

// DefaultConfig emulates a 64-beam sensor at 512 azimuth steps.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyPipelineConfig())
}

// ConfigFromTuning builds a Config from a loaded PipelineConfig.
func ConfigFromTuning(cfg *config.PipelineConfig) Config {
	return Config{
		Height: cfg.GetSparsifyHeight(),
		Width:  cfg.GetSparsifyWidth(),
		Slice:  cfg.GetSparsifySlice(),
		Crop: Box{
			MinX: cfg.GetSparsifyCropMinX(), MaxX: cfg.GetSparsifyCropMaxX(),
			MinY: cfg.GetSparsifyCropMinY(), MaxY: cfg.GetSparsifyCropMaxY(),
			MinZ: cfg.GetSparsifyCropMinZ(), MaxZ: cfg.GetSparsifyCropMaxZ(),
		},
	}
}

// Angular bins points by elevation and azimuth angle and keeps one point per
// bin, the last one seen in input order.
type Angular struct {
	cfg Config
}

// NewAngular returns an angular sparsifier. Non-positive dimensions fall back
// to the defaults.
func NewAngular(cfg Config) *Angular {
	def := DefaultConfig()
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Slice < 1 {
		cfg.Slice = 1
	}
	return &Angular{cfg: cfg}
}

// Config returns the effective configuration.
func (a *Angular) Config() Config { return a.cfg }

const (
	// HDL-64E vertical resolution is ~0.4° over 64 beams, starting 2° above
	// the horizon.
	beamPitchDeg  = 0.4
	referenceBeam = 64.0
	topElevation  = 2.0
	fovHalfDeg    = 45.0
	fovDeg        = 90.0
	minRadius     = 1e-6
)

// Sparsify implements Sparsifier. Output points are ordered by elevation
// bin, then azimuth bin.
func (a *Angular) Sparsify(cloud pointcloud.Cloud) pointcloud.Cloud {
	h, w := a.cfg.Height, a.cfg.Width
	dTheta := radians(beamPitchDeg * referenceBeam / float64(h))
	dPhi := radians(fovDeg / float64(w))

	bins := make([]int32, h*w)
	for i := range bins {
		bins[i] = -1
	}

	for i, p := range cloud {
		if !a.cfg.Crop.Contains(p) {
			continue
		}
		d := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		r := math.Sqrt(p.X*p.X + p.Y*p.Y)
		if d == 0 {
			d = minRadius
		}
		if r == 0 {
			r = minRadius
		}

		phi := radians(fovHalfDeg) - math.Asin(clampUnit(p.Y/r))
		col := clampBin(int(phi/dPhi), w)

		theta := radians(topElevation) - math.Asin(clampUnit(p.Z/d))
		row := clampBin(int(theta/dTheta), h)

		bins[row*w+col] = int32(i)
	}

	out := make(pointcloud.Cloud, 0, len(bins)/a.cfg.Slice)
	for row := 0; row < h; row += a.cfg.Slice {
		for _, idx := range bins[row*w : (row+1)*w] {
			if idx >= 0 {
				out = append(out, cloud[idx])
			}
		}
	}
	return out
}

// Passthrough returns the cloud unchanged; used when sparsification is off.
type Passthrough struct{}

// Sparsify implements Sparsifier.
func (Passthrough) Sparsify(cloud pointcloud.Cloud) pointcloud.Cloud { return cloud }

// FromTuning returns the Sparsifier selected by the config.
func FromTuning(cfg *config.PipelineConfig) Sparsifier {
	if !cfg.GetSparsifyEnabled() {
		return Passthrough{}
	}
	return NewAngular(ConfigFromTuning(cfg))
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// clampBin truncates toward zero then clamps into [0, n).
func clampBin(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
