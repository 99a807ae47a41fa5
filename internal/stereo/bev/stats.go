package bev

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the occupied cells of a raster.
type Stats struct {
	Cells         int     `json:"cells"`
	OccupiedCells int     `json:"occupied_cells"`
	Occupancy     float64 `json:"occupancy"`
	MeanHeight    float64 `json:"mean_height"`
	StdHeight     float64 `json:"std_height"`
	MaxHeight     float64 `json:"max_height"`
	MeanDensity   float64 `json:"mean_density"`
	StdDensity    float64 `json:"std_density"`
}

// Stats computes occupancy and the distribution of the height and density
// channels over occupied cells. Values are in normalised raster units.
func (r *Raster) Stats() Stats {
	s := Stats{Cells: r.Height * r.Width}
	if s.Cells == 0 {
		return s
	}

	intensity := r.Channel(ChannelIntensity)
	height := r.Channel(ChannelHeight)
	density := r.Channel(ChannelDensity)

	var heights, densities []float64
	for cell, v := range intensity {
		if v == 0 {
			continue
		}
		h := float64(height[cell])
		heights = append(heights, h)
		densities = append(densities, float64(density[cell]))
		if h > s.MaxHeight {
			s.MaxHeight = h
		}
	}

	s.OccupiedCells = len(heights)
	s.Occupancy = float64(s.OccupiedCells) / float64(s.Cells)
	switch len(heights) {
	case 0:
	case 1:
		s.MeanHeight, s.MeanDensity = heights[0], densities[0]
	default:
		s.MeanHeight, s.StdHeight = stat.MeanStdDev(heights, nil)
		s.MeanDensity, s.StdDensity = stat.MeanStdDev(densities, nil)
	}
	return s
}
