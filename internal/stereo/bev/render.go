package bev

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ChannelGrid adapts one raster channel to plotter.GridXYZ. Columns run
// along the lateral axis, rows along the forward axis.
type ChannelGrid struct {
	r *Raster
	c Channel
}

var _ plotter.GridXYZ = ChannelGrid{}

// Grid returns channel c as a plotter.GridXYZ.
func (r *Raster) Grid(c Channel) ChannelGrid { return ChannelGrid{r: r, c: c} }

func (g ChannelGrid) Dims() (c, r int)   { return g.r.Width, g.r.Height }
func (g ChannelGrid) Z(c, r int) float64 { return float64(g.r.At(g.c, r, c)) }
func (g ChannelGrid) X(c int) float64    { return float64(c) }
func (g ChannelGrid) Y(r int) float64    { return float64(r) }

// RenderChannelPNG writes channel c of r as a heat map image. The output
// format follows the file extension of path.
func RenderChannelPNG(r *Raster, c Channel, path string) error {
	if c < 0 || c >= NumChannels {
		return fmt.Errorf("bev: invalid channel %d", int(c))
	}
	if r.Height == 0 || r.Width == 0 {
		return fmt.Errorf("bev: cannot render empty raster")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("BEV %s", c)
	p.X.Label.Text = "lateral cell"
	p.Y.Label.Text = "forward cell"

	hm := plotter.NewHeatMap(r.Grid(c), palette.Heat(32, 1))
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s plot: %w", c, err)
	}
	return nil
}
