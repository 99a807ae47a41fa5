package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/httputil"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/bev"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// maxChartCells is the default cap on rendered cells; the stride grows
// until the occupied cells fit.
const maxChartCells = 20000

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// chartPoints samples occupied cells of channel c on a stride grid.
// Values are (col, row, value).
func chartPoints(r *bev.Raster, c bev.Channel, stride int) []opts.ScatterData {
	intensity := r.Channel(bev.ChannelIntensity)
	var pts []opts.ScatterData
	for row := 0; row < r.Height; row += stride {
		for col := 0; col < r.Width; col += stride {
			if intensity[row*r.Width+col] == 0 {
				continue
			}
			pts = append(pts, opts.ScatterData{Value: []interface{}{col, row, r.At(c, row, col)}})
		}
	}
	return pts
}

// handleBEVChart renders one channel of the latest raster as an HTML
// scatter heat map. Debug only.
// Query params:
//   - channel (optional; 0 intensity, 1 height, 2 density; default 1)
//   - stride (optional; default chosen so at most 20000 cells are drawn)
func (ws *WebServer) handleBEVChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	frame, raster := ws.Latest()
	if raster == nil {
		httputil.NotFound(w, "no frame published yet")
		return
	}

	channel := bev.ChannelHeight
	if s := r.URL.Query().Get("channel"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= bev.NumChannels {
			httputil.BadRequest(w, fmt.Sprintf("channel must be in [0, %d)", bev.NumChannels))
			return
		}
		channel = bev.Channel(n)
	}

	stride := 1
	if s := r.URL.Query().Get("stride"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "stride must be a positive integer")
			return
		}
		stride = n
	} else {
		for frame.Stats.OccupiedCells/(stride*stride) > maxChartCells {
			stride++
		}
	}

	points := chartPoints(raster, channel, stride)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "BEV Raster", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "BEV " + channel.String(), Subtitle: fmt.Sprintf("frame=%s cells=%d stride=%d", frame.Name, len(points), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: raster.Width, Name: "col (y)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: raster.Height, Name: "row (x)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(channel.String(), points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render bev chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
