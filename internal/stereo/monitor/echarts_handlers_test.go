package monitor

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/bev"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/testutil"
)

func TestChartPoints(t *testing.T) {
	r := testResult().Raster

	pts := chartPoints(r, bev.ChannelHeight, 1)
	require.Len(t, pts, 2)
	assert.Equal(t, []interface{}{2, 1, float32(0.5)}, pts[0].Value)
	assert.Equal(t, []interface{}{0, 3, float32(0.75)}, pts[1].Value)

	// stride 2 visits rows 0,2 only
	assert.Empty(t, chartPoints(r, bev.ChannelHeight, 2))
}

func TestBEVChart(t *testing.T) {
	ws := newTestServer(t, WebServerConfig{})

	rec := get(ws, "/debug/bev")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	ws.Publish("000010", "", testResult())
	rec = get(ws, "/debug/bev?channel=2")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "BEV density")
	assert.Contains(t, body, "000010")
	assert.Contains(t, body, echartsAssetsPrefix)
}

func TestBEVChart_BadParams(t *testing.T) {
	ws := newTestServer(t, WebServerConfig{})
	ws.Publish("f", "", testResult())

	for _, target := range []string{
		"/debug/bev?channel=3",
		"/debug/bev?channel=x",
		"/debug/bev?stride=0",
	} {
		rec := get(ws, target)
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}
