package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/httputil"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/bev"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pipeline"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/timeutil"
)

// defaultRunsLimit bounds /api/runs when no limit is given.
const defaultRunsLimit = 50

// RunLister is the part of the run catalogue the monitor reads.
type RunLister interface {
	ListRuns(limit int) ([]db.Run, error)
}

// StageMillis is one pipeline stage timing in the JSON frame summary.
type StageMillis struct {
	Stage  string  `json:"stage"`
	Millis float64 `json:"ms"`
}

// Frame summarises the last published raster.
type Frame struct {
	Name        string        `json:"name"`
	RunID       string        `json:"run_id,omitempty"`
	Points      int           `json:"points"`
	Height      int           `json:"height"`
	Width       int           `json:"width"`
	Stats       bev.Stats     `json:"stats"`
	Timings     []StageMillis `json:"timings"`
	PublishedAt time.Time     `json:"published_at"`
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	// Runs backs /api/runs. Nil answers 503.
	Runs RunLister
	// DB, when set, also mounts the tailsql console and backup download.
	DB *db.DB
	// Clock stamps published frames. Nil uses the wall clock.
	Clock timeutil.Clock
}

// WebServer handles the HTTP interface for monitoring BEV rasters.
type WebServer struct {
	address string
	runs    RunLister
	server  *http.Server
	mux     *http.ServeMux

	mu     sync.RWMutex
	latest *Frame
	raster *bev.Raster

	clock timeutil.Clock
}

// NewWebServer creates a web server with its routes attached.
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	ws := &WebServer{
		address: config.Address,
		runs:    config.Runs,
		clock:   config.Clock,
	}
	if ws.clock == nil {
		ws.clock = timeutil.RealClock{}
	}
	if ws.runs == nil && config.DB != nil {
		ws.runs = config.DB
	}

	ws.mux = ws.setupRoutes()
	if config.DB != nil {
		if err := config.DB.AttachAdminRoutes(ws.mux); err != nil {
			return nil, fmt.Errorf("failed to attach admin routes: %w", err)
		}
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws, nil
}

// Handler returns the route multiplexer, for tests and embedding.
func (ws *WebServer) Handler() http.Handler { return ws.mux }

// Publish replaces the latest frame. The raster is retained by reference
// and must not be mutated afterwards.
func (ws *WebServer) Publish(name, runID string, res *pipeline.Result) {
	if res == nil || res.Raster == nil {
		return
	}
	f := &Frame{
		Name:        name,
		RunID:       runID,
		Points:      len(res.Points),
		Height:      res.Raster.Height,
		Width:       res.Raster.Width,
		Stats:       res.Raster.Stats(),
		Timings:     make([]StageMillis, 0, len(res.Timings)),
		PublishedAt: ws.clock.Now().UTC(),
	}
	for _, t := range res.Timings {
		f.Timings = append(f.Timings, StageMillis{Stage: t.Stage, Millis: t.Millis()})
	}

	ws.mu.Lock()
	ws.latest = f
	ws.raster = res.Raster
	ws.mu.Unlock()
}

// Latest returns the last published frame and its raster, or nils.
func (ws *WebServer) Latest() (*Frame, *bev.Raster) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.latest, ws.raster
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/frames/latest", ws.handleLatestFrame)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/debug/bev", ws.handleBEVChart)
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	frame, _ := ws.Latest()
	if frame == nil {
		httputil.NotFound(w, "no frame published yet")
		return
	}
	httputil.WriteJSONOK(w, frame)
}

// handleRuns lists catalogue runs, newest first.
// Query params:
//
//	limit (optional, default 50)
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	if ws.runs == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run catalogue not configured")
		return
	}
	limit := defaultRunsLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := ws.runs.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}
