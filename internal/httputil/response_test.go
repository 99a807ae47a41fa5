package httputil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
)

func TestWriteJSONOK(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONOK(w, map[string]int{"occupied_cells": 12})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"occupied_cells":12}`, w.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "channel must be 0, 1 or 2") }, http.StatusBadRequest, "channel must be 0, 1 or 2"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no frame yet") }, http.StatusNotFound, "no frame yet"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError, "boom"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)

			var body ErrorBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	var logged string
	monitoring.SetLogger(func(format string, v ...interface{}) { logged = format })
	defer monitoring.SetLogger(nil)

	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, math.NaN())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logged, "failed to encode json response")
}

func TestRequireGET(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireGET(w, httptest.NewRequest(http.MethodGet, "/", nil)))

	w = httptest.NewRecorder()
	assert.False(t, RequireGET(w, httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
}
