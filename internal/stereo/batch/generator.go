package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/fsutil"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/security"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/calib"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/depth"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/dispio"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/timeutil"
)

// stageReconstruct names the reconstruction step in NumericInvariantError.
const stageReconstruct = "reconstruct"

// Recorder is the part of the run catalogue the generator writes to.
type Recorder interface {
	StartRun(mode, sourceDir, configJSON string) (*db.Run, error)
	RecordFrame(rec db.FrameRecord) error
	FinishRun(runID string) error
}

// Config mirrors the command line of the generator.
type Config struct {
	CalibDir     string  `json:"calib_dir"`
	DisparityDir string  `json:"disparity_dir"`
	SaveDir      string  `json:"save_dir"`
	MaxHigh      float64 `json:"max_high"`
	IsDepth      bool    `json:"is_depth"`
	Baseline     float64 `json:"baseline"`
	Workers      int     `json:"workers"`
}

// FrameResult is the outcome of one map.
type FrameResult struct {
	Name       string
	Output     string
	Points     int
	MeanHeight float64
	Duration   time.Duration
	Err        error
}

// Summary is the outcome of a Run. Frames are in directory order.
type Summary struct {
	RunID     string
	Frames    []FrameResult
	Succeeded int
	Failed    int
}

// Generator runs the conversion. Frames are processed by Config.Workers
// goroutines; each worker keeps its own calibration cache.
type Generator struct {
	cfg   Config
	fs    fsutil.FileSystem
	store Recorder
	recon *depth.Reconstructor
	clock timeutil.Clock
}

// NewGenerator validates cfg. fsys nil uses the host filesystem; store may
// be nil.
func NewGenerator(cfg Config, fsys fsutil.FileSystem, store Recorder) (*Generator, error) {
	if cfg.CalibDir == "" || cfg.DisparityDir == "" || cfg.SaveDir == "" {
		return nil, fmt.Errorf("batch: calib, disparity and save directories are required")
	}
	if cfg.Baseline <= 0 {
		cfg.Baseline = depth.DefaultBaseline
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Generator{
		cfg:   cfg,
		fs:    fsys,
		store: store,
		recon: depth.NewReconstructor(cfg.Baseline),
		clock: timeutil.RealClock{},
	}, nil
}

// Frames lists the map files to convert, sorted by name.
func (g *Generator) Frames() ([]string, error) {
	names, err := g.fs.ReadDir(g.cfg.DisparityDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", g.cfg.DisparityDir, err)
	}
	var frames []string
	for _, n := range names {
		if dispio.IsMapFile(n) {
			frames = append(frames, n)
		}
	}
	return frames, nil
}

// Run converts every map. A frame that fails is reported in the summary and
// does not stop the run. Cancelling ctx stops dispatching new frames; the
// partial summary is returned with ctx.Err().
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	for _, dir := range []string{g.cfg.DisparityDir, g.cfg.CalibDir} {
		if !g.fs.IsDir(dir) {
			return nil, fmt.Errorf("batch: %s is not a directory", dir)
		}
	}
	if err := g.fs.MkdirAll(g.cfg.SaveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save dir: %w", err)
	}
	frames, err := g.Frames()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Frames: make([]FrameResult, len(frames))}
	if g.store != nil {
		cfgJSON, _ := json.Marshal(g.cfg)
		run, err := g.store.StartRun(g.mode(), g.cfg.DisparityDir, string(cfgJSON))
		if err != nil {
			return nil, err
		}
		summary.RunID = run.ID
	}

	type job struct {
		idx  int
		name string
	}
	jobs := make(chan job)
	results := make(chan job, len(frames))

	var wg sync.WaitGroup
	for w := 0; w < g.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache := calib.NewCache(g.loadCalibration)
			for j := range jobs {
				summary.Frames[j.idx] = g.ProcessFrame(cache, j.name)
				results <- j
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, name := range frames {
			select {
			case jobs <- job{idx: i, name: name}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for j := range results {
		done++
		g.record(summary.RunID, summary.Frames[j.idx])
	}
	summary.Frames = compact(summary.Frames, done)

	for _, f := range summary.Frames {
		if f.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	if g.store != nil {
		if err := g.store.FinishRun(summary.RunID); err != nil {
			monitoring.Logf("failed to finish run %s: %v", summary.RunID, err)
		}
	}
	if done < len(frames) {
		return summary, ctx.Err()
	}
	return summary, nil
}

// compact drops the slots of frames that were never dispatched.
func compact(frames []FrameResult, done int) []FrameResult {
	if done == len(frames) {
		return frames
	}
	out := make([]FrameResult, 0, done)
	for _, f := range frames {
		if f.Name != "" {
			out = append(out, f)
		}
	}
	return out
}

func (g *Generator) mode() string {
	if g.cfg.IsDepth {
		return db.ModeBatch + "-depth"
	}
	return db.ModeBatch
}

// ProcessFrame converts one map file, named relative to the disparity
// directory, and writes its cloud.
func (g *Generator) ProcessFrame(cache *calib.Cache, name string) FrameResult {
	start := g.clock.Now()
	res := FrameResult{Name: name}
	base := strings.TrimSuffix(name, filepath.Ext(name))

	cloud, err := g.convert(cache, name, base)
	if err == nil {
		err = pointcloud.CheckFinite(cloud, stageReconstruct)
	}
	if err == nil {
		res.Points = len(cloud)
		res.MeanHeight = MeanHeight(cloud)
		res.Output, err = g.write(base, cloud)
	}
	res.Duration = g.clock.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", name, err)
		monitoring.Logf("failed %s: %v", base, err)
		return res
	}
	monitoring.Logf("finished %s: %d points in %.1fms", base, res.Points, float64(res.Duration)/float64(time.Millisecond))
	return res
}

func (g *Generator) convert(cache *calib.Cache, name, base string) (pointcloud.Cloud, error) {
	proj, err := cache.Get(filepath.Join(g.cfg.CalibDir, base+".txt"))
	if err != nil {
		return nil, err
	}

	f, err := g.fs.Open(filepath.Join(g.cfg.DisparityDir, name))
	if err != nil {
		return nil, err
	}
	m, err := dispio.Decode(f, name)
	f.Close()
	if err != nil {
		return nil, err
	}

	if g.cfg.IsDepth {
		return g.recon.ProjectDepthToPoints(proj, m, g.cfg.MaxHigh)
	}
	return g.recon.ProjectDispToPoints(proj, dispio.QuantizeDisparity(m), g.cfg.MaxHigh)
}

func (g *Generator) write(base string, cloud pointcloud.Cloud) (string, error) {
	out, err := security.OutputPath(g.cfg.SaveDir, base, ".bin")
	if err != nil {
		return "", err
	}
	w, err := g.fs.Create(out)
	if err != nil {
		return "", err
	}
	if err := pointcloud.WriteKITTIBin(w, cloud); err != nil {
		w.Close()
		return "", err
	}
	return out, w.Close()
}

func (g *Generator) loadCalibration(path string) (calib.Projector, error) {
	f, err := g.fs.Open(path)
	if err != nil {
		return nil, &calib.CalibrationError{Source: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()
	return calib.Parse(f, path)
}

func (g *Generator) record(runID string, res FrameResult) {
	if g.store == nil {
		return
	}
	rec := db.FrameRecord{
		RunID:      runID,
		FrameName:  res.Name,
		PointCount: res.Points,
		MeanHeight: res.MeanHeight,
		Duration:   res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := g.store.RecordFrame(rec); err != nil {
		monitoring.Logf("failed to record frame %s: %v", res.Name, err)
	}
}

// MeanHeight is the mean z of a cloud, 0 when empty.
func MeanHeight(cloud pointcloud.Cloud) float64 {
	if len(cloud) == 0 {
		return 0
	}
	z := make([]float64, len(cloud))
	for i, p := range cloud {
		z[i] = p.Z
	}
	return stat.Mean(z, nil)
}
