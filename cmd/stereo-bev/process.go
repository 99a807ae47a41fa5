package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/fsutil"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/security"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/bev"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/dispio"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pipeline"
)

// publisher receives every rasterised frame.
type publisher interface {
	Publish(name, runID string, res *pipeline.Result)
}

// processor runs DisparityToBEV over a directory of maps.
type processor struct {
	est          *pipeline.Estimator
	disparityDir string
	calibDir     string
	outDir       string // empty skips rendering
	store        db.RunStore
	pub          publisher
	configJSON   string
}

// summary counts processed frames.
type summary struct {
	RunID     string
	Succeeded int
	Failed    int
}

func (p *processor) frames() ([]string, error) {
	names, err := fsutil.OSFileSystem{}.ReadDir(p.disparityDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.disparityDir, err)
	}
	var out []string
	for _, n := range names {
		if dispio.IsMapFile(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (p *processor) run(ctx context.Context) (*summary, error) {
	frames, err := p.frames()
	if err != nil {
		return nil, err
	}
	if p.outDir != "" {
		if err := (fsutil.OSFileSystem{}).MkdirAll(p.outDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	s := &summary{}
	if p.store != nil {
		run, err := p.store.StartRun(db.ModeBEV, p.disparityDir, p.configJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to start run: %w", err)
		}
		s.RunID = run.ID
		defer func() {
			if err := p.store.FinishRun(s.RunID); err != nil {
				monitoring.Logf("failed to finish run %s: %v", s.RunID, err)
			}
		}()
	}

	for _, name := range frames {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		rec := p.frame(s.RunID, name)
		if rec.Error != "" {
			s.Failed++
			monitoring.Logf("%s: %s", name, rec.Error)
		} else {
			s.Succeeded++
		}
		if p.store != nil {
			if err := p.store.RecordFrame(rec); err != nil {
				monitoring.Logf("failed to record frame %s: %v", name, err)
			}
		}
	}
	return s, nil
}

func (p *processor) frame(runID, name string) db.FrameRecord {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	rec := db.FrameRecord{RunID: runID, FrameName: name}
	start := time.Now()

	disp, err := dispio.LoadMap(filepath.Join(p.disparityDir, name))
	if err != nil {
		rec.Error = err.Error()
		rec.Duration = time.Since(start)
		return rec
	}
	res, err := p.est.DisparityToBEV(disp, filepath.Join(p.calibDir, base+".txt"))
	if err != nil {
		rec.Error = err.Error()
		rec.Duration = time.Since(start)
		return rec
	}

	stats := res.Raster.Stats()
	rec.PointCount = len(res.Points)
	rec.OccupiedCells = stats.OccupiedCells
	rec.MeanHeight = stats.MeanHeight

	if p.outDir != "" {
		if err := renderChannels(res.Raster, p.outDir, base); err != nil {
			rec.Error = err.Error()
		}
	}
	if p.pub != nil {
		p.pub.Publish(base, runID, res)
	}
	rec.Duration = time.Since(start)
	return rec
}

// renderChannels writes <base>_<channel>.png for every channel.
func renderChannels(r *bev.Raster, dir, base string) error {
	for c := bev.Channel(0); c < bev.NumChannels; c++ {
		path, err := security.OutputPath(dir, base+"_"+c.String(), ".png")
		if err != nil {
			return err
		}
		if err := bev.RenderChannelPNG(r, c, path); err != nil {
			return fmt.Errorf("render %s: %w", c, err)
		}
	}
	return nil
}
