package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/bev"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/calib"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/depth"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/sparsify"
)

// Stage names used in Result.Timings and log lines.
const (
	StagePreprocess  = "preprocess"
	StageStereo      = "stereo"
	StageCalibration = "calibration"
	StageReconstruct = "reconstruct"
	StageSparsify    = "sparsify"
	StageFilter      = "filter"
	StageRasterize   = "rasterize"
)

// DisparityEstimator runs a stereo matching network on a rectified image
// pair and returns the left-view disparity in pixels.
type DisparityEstimator interface {
	Estimate(ctx context.Context, left, right image.Image) (*depth.Map, error)
}

// Options configures an Estimator.
type Options struct {
	Baseline   float64
	MaxHigh    float64
	CameraRows int
	CameraCols int

	Boundary   bev.Boundary
	Grid       bev.GridConfig
	Sparsifier sparsify.Sparsifier

	// Loader overrides how calibration files are read. Nil reads KITTI
	// calibration text files.
	Loader calib.Loader

	// Verbose logs per-stage timings for every frame.
	Verbose bool
}

// DefaultOptions returns the KITTI defaults.
func DefaultOptions() Options {
	return OptionsFromTuning(config.EmptyPipelineConfig())
}

// OptionsFromTuning derives Options from a PipelineConfig.
func OptionsFromTuning(cfg *config.PipelineConfig) Options {
	return Options{
		Baseline:   cfg.GetBaseline(),
		MaxHigh:    cfg.GetMaxHigh(),
		CameraRows: cfg.GetCameraRows(),
		CameraCols: cfg.GetCameraCols(),
		Boundary:   bev.BoundaryFromTuning(cfg),
		Grid:       bev.GridConfigFromTuning(cfg),
		Sparsifier: sparsify.FromTuning(cfg),
	}
}

// Result is the output of one frame.
type Result struct {
	Raster *bev.Raster
	// Points is the filtered cloud that was rasterised, z relative to the
	// region floor.
	Points  pointcloud.Cloud
	Timings []monitoring.StageTiming
}

// Estimator converts stereo frames to BEV rasters. It is safe for
// concurrent use; frames that share a calibration path reuse the parsed
// calibration.
type Estimator struct {
	stereo DisparityEstimator
	recon  *depth.Reconstructor
	cache  *calib.Cache
	opts   Options
	frames atomic.Uint64
}

// NewEstimator validates opts and returns an Estimator. stereo may be nil
// when only DisparityToBEV is used.
func NewEstimator(stereo DisparityEstimator, opts Options) (*Estimator, error) {
	if opts.Baseline <= 0 {
		return nil, fmt.Errorf("pipeline: baseline must be positive, got %v", opts.Baseline)
	}
	if err := opts.Grid.Validate(); err != nil {
		return nil, err
	}
	if opts.Sparsifier == nil {
		opts.Sparsifier = sparsify.Passthrough{}
	}
	recon := depth.NewReconstructor(opts.Baseline)
	recon.ExpectedRows, recon.ExpectedCols = opts.CameraRows, opts.CameraCols

	return &Estimator{
		stereo: stereo,
		recon:  recon,
		cache:  calib.NewCache(opts.Loader),
		opts:   opts,
	}, nil
}

// Options returns the effective options.
func (e *Estimator) Options() Options { return e.opts }

// Calibrations returns the calibration cache.
func (e *Estimator) Calibrations() *calib.Cache { return e.cache }

// Predict runs the stereo network on an image pair and rasterises the
// resulting disparity. When a camera shape is configured both images are
// cropped to it, keeping the bottom-right corner.
func (e *Estimator) Predict(ctx context.Context, left, right image.Image, calibPath string) (*Result, error) {
	if e.stereo == nil {
		return nil, fmt.Errorf("pipeline: no disparity estimator configured")
	}
	timer := monitoring.NewTimer()

	if e.opts.CameraRows > 0 && e.opts.CameraCols > 0 {
		left = CropBottomRight(left, e.opts.CameraRows, e.opts.CameraCols)
		right = CropBottomRight(right, e.opts.CameraRows, e.opts.CameraCols)
	}
	timer.Mark(StagePreprocess)

	disp, err := e.stereo.Estimate(ctx, left, right)
	if err != nil {
		return nil, fmt.Errorf("stereo estimation failed: %w", err)
	}
	timer.Mark(StageStereo)

	return e.run(disp, calibPath, timer)
}

// DisparityToBEV rasterises a disparity map using the calibration at
// calibPath.
func (e *Estimator) DisparityToBEV(disp *depth.Map, calibPath string) (*Result, error) {
	return e.run(disp, calibPath, monitoring.NewTimer())
}

func (e *Estimator) run(disp *depth.Map, calibPath string, timer *monitoring.Timer) (*Result, error) {
	frame := e.frames.Add(1)

	proj, err := e.cache.Get(calibPath)
	if err != nil {
		return nil, err
	}
	timer.Mark(StageCalibration)

	if err := e.recon.CheckShape(disp); err != nil {
		return nil, err
	}
	cloud, err := e.recon.ProjectDispToPoints(proj, disp, e.opts.MaxHigh)
	if err != nil {
		return nil, err
	}
	if err := pointcloud.CheckFinite(cloud, StageReconstruct); err != nil {
		return nil, err
	}
	timer.Mark(StageReconstruct)

	sparse := e.opts.Sparsifier.Sparsify(cloud)
	timer.Mark(StageSparsify)

	filtered := bev.FilterLidar(sparse, e.opts.Boundary)
	if err := pointcloud.CheckFinite(filtered, StageFilter); err != nil {
		return nil, err
	}
	timer.Mark(StageFilter)

	raster, err := bev.MakeBEVMap(filtered, e.opts.Grid)
	if err != nil {
		return nil, err
	}
	timer.Mark(StageRasterize)

	if e.opts.Verbose {
		timer.Log(fmt.Sprintf("frame %06d: points=%d sparse=%d kept=%d", frame, len(cloud), len(sparse), len(filtered)))
	}
	return &Result{Raster: raster, Points: filtered, Timings: timer.Stages()}, nil
}

// CropBottomRight returns the rows x cols window anchored at the
// bottom-right corner of img. Images already within the window are returned
// unchanged.
func CropBottomRight(img image.Image, rows, cols int) image.Image {
	b := img.Bounds()
	if b.Dx() <= cols && b.Dy() <= rows {
		return img
	}
	w, h := min(cols, b.Dx()), min(rows, b.Dy())
	src := image.Rect(b.Max.X-w, b.Max.Y-h, b.Max.X, b.Max.Y)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)
	return dst
}
