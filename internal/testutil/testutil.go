// Package testutil provides fixtures shared by the stereo package tests.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/depth"
)

// AxisCalibration is a KITTI calibration with f_u = 500, principal point
// (10, 20), identity rectification and a pure axis swap from LiDAR to
// camera. A pixel (u, v) at depth d lands at LiDAR
// (d, -(u-10)d/500, -(v-20)d/500).
const AxisCalibration = `P0: 500 0 10 0 0 500 20 0 0 0 1 0
P1: 500 0 10 -270 0 500 20 0 0 0 1 0
P2: 500 0 10 0 0 500 20 0 0 0 1 0
P3: 500 0 10 -270 0 500 20 0 0 0 1 0
R0_rect: 1 0 0 0 1 0 0 0 1
Tr_velo_to_cam: 0 -1 0 0 0 0 -1 0 1 0 0 0
Tr_imu_to_velo: 1 0 0 0 0 1 0 0 0 0 1 0
`

// AxisFocalBaseline is f_u * baseline for AxisCalibration with the KITTI
// baseline of 0.54 m.
const AxisFocalBaseline = 500 * 0.54

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SinglePixel returns a rows x cols map that is zero except at (row, col).
func SinglePixel(rows, cols, row, col int, v float32) *depth.Map {
	m := depth.NewMap(rows, cols)
	m.Set(row, col, v)
	return m
}

// AssertStatusCode checks a response status code.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON decodes a recorded response body into v.
func DecodeJSON(t testing.TB, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}
