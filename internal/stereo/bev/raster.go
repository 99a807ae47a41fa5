package bev

import (
	"fmt"
	"math"
	"sort"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// Channel indexes into a Raster.
type Channel int

const (
	ChannelIntensity Channel = iota
	ChannelHeight
	ChannelDensity

	NumChannels = 3
)

func (c Channel) String() string {
	switch c {
	case ChannelIntensity:
		return "intensity"
	case ChannelHeight:
		return "height"
	case ChannelDensity:
		return "density"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// DefaultDensitySaturation is the point count at which the density channel
// reaches 1.0.
const DefaultDensitySaturation = 64.0

// GridConfig describes the raster geometry.
type GridConfig struct {
	Height int // cells along x
	Width  int // cells along y

	// Cells per metre.
	DiscretizationX float64
	DiscretizationY float64

	// MaxHeight normalises the height channel. It should equal the vertical
	// extent of the Boundary used to filter the cloud.
	MaxHeight float64

	DensitySaturation float64
}

// GridConfigFromTuning derives the grid from the BEV size and the region of
// interest so that the region maps exactly onto the raster.
func GridConfigFromTuning(cfg *config.PipelineConfig) GridConfig {
	b := BoundaryFromTuning(cfg)
	h, w := cfg.GetBEVHeight(), cfg.GetBEVWidth()
	return GridConfig{
		Height:            h,
		Width:             w,
		DiscretizationX:   float64(h) / (b.MaxX - b.MinX),
		DiscretizationY:   float64(w) / (b.MaxY - b.MinY),
		MaxHeight:         b.Height(),
		DensitySaturation: cfg.GetDensitySaturation(),
	}
}

// DefaultGridConfig is the 608 x 608 KITTI grid.
func DefaultGridConfig() GridConfig {
	return GridConfigFromTuning(config.EmptyPipelineConfig())
}

// Validate checks that the grid can be rasterised onto.
func (g GridConfig) Validate() error {
	if g.Height <= 0 || g.Width <= 0 {
		return fmt.Errorf("bev: grid size must be positive, got %dx%d", g.Height, g.Width)
	}
	if g.DiscretizationX <= 0 || g.DiscretizationY <= 0 {
		return fmt.Errorf("bev: discretization must be positive, got x=%v y=%v", g.DiscretizationX, g.DiscretizationY)
	}
	if g.MaxHeight <= 0 {
		return fmt.Errorf("bev: max height must be positive, got %v", g.MaxHeight)
	}
	if g.DensitySaturation <= 1 {
		return fmt.Errorf("bev: density saturation must be > 1, got %v", g.DensitySaturation)
	}
	return nil
}

// Raster is a channel-major 3 x Height x Width float32 grid.
type Raster struct {
	Height int
	Width  int
	Data   []float32
}

// NewRaster allocates a zeroed raster.
func NewRaster(height, width int) *Raster {
	return &Raster{Height: height, Width: width, Data: make([]float32, NumChannels*height*width)}
}

func (r *Raster) offset(c Channel, row, col int) int {
	return (int(c)*r.Height+row)*r.Width + col
}

// At returns the value of channel c at (row, col).
func (r *Raster) At(c Channel, row, col int) float32 {
	return r.Data[r.offset(c, row, col)]
}

// Channel returns the Height*Width plane of channel c. The slice aliases the
// raster data.
func (r *Raster) Channel(c Channel) []float32 {
	n := r.Height * r.Width
	return r.Data[int(c)*n : (int(c)+1)*n]
}

// MakeBEVMap rasterises cloud. Points are visited in ascending z order with
// ties kept in input order; every cell keeps the last point written to it,
// which is therefore its highest. Points outside the grid are dropped.
//
// Only z of the winning point reaches the raster, so the result does not
// depend on the order of cloud.
func MakeBEVMap(cloud pointcloud.Cloud, g GridConfig) (*Raster, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	raster := NewRaster(g.Height, g.Width)
	if len(cloud) == 0 {
		return raster, nil
	}

	order := make([]int, len(cloud))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cloud[order[a]].Z < cloud[order[b]].Z
	})

	cells := g.Height * g.Width
	counts := make([]int, cells)
	heights := make([]float64, cells)
	halfWidth := float64(g.Width) / 2

	// The reference layout uses a (Height+1) x (Width+1) canvas and crops
	// the overflow row and column; skipping those indices is equivalent.
	for _, idx := range order {
		p := cloud[idx]
		ix := math.Floor(p.X * g.DiscretizationX)
		iy := math.Floor(halfWidth + p.Y*g.DiscretizationY)
		if ix < 0 || iy < 0 || ix >= float64(g.Height) || iy >= float64(g.Width) {
			continue
		}
		cell := int(ix)*g.Width + int(iy)
		counts[cell]++
		heights[cell] = p.Z
	}

	intensity := raster.Channel(ChannelIntensity)
	height := raster.Channel(ChannelHeight)
	density := raster.Channel(ChannelDensity)
	logSat := math.Log(g.DensitySaturation)
	for cell, n := range counts {
		if n == 0 {
			continue
		}
		intensity[cell] = 1
		height[cell] = float32(heights[cell] / g.MaxHeight)
		density[cell] = float32(math.Min(1, math.Log(float64(n)+1)/logSat))
	}
	return raster, nil
}
