// Command gen-lidar converts a directory of disparity (or depth) maps into
// KITTI velodyne .bin point clouds, one file per map.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/batch"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/version"
)

var (
	calibDir     = flag.String("calib-dir", "~/Kitti/object/training/calib", "Directory of KITTI calibration .txt files")
	disparityDir = flag.String("disparity-dir", "~/Kitti/object/training/predicted_disparity", "Directory of disparity or depth maps (.png, .npy, .tif)")
	saveDir      = flag.String("save-dir", "~/Kitti/object/training/predicted_velodyne", "Directory to write .bin point clouds to")
	maxHigh      = flag.Float64("max-high", 1, "Drop points above this height (m)")
	isDepth      = flag.Bool("is-depth", false, "Inputs are depth maps rather than disparity. PNG/TIFF depth is divided by 256; .npy depth is read as metres, unscaled")
	workers      = flag.Int("workers", 0, "Concurrent frames (0 uses the config value)")
	configPath   = flag.String("config", "", "Pipeline config JSON (defaults built in)")
	dbPath       = flag.String("db", "", "Record the run into this sqlite catalogue")
	logFile      = flag.String("log-file", "", "Append diagnostic logs to this file instead of stderr")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// expandHome resolves a leading ~/ against $HOME.
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// buildConfig merges the flags over the pipeline config.
func buildConfig(tuning *config.PipelineConfig) batch.Config {
	cfg := batch.Config{
		CalibDir:     expandHome(*calibDir),
		DisparityDir: expandHome(*disparityDir),
		SaveDir:      expandHome(*saveDir),
		MaxHigh:      *maxHigh,
		IsDepth:      *isDepth,
		Baseline:     tuning.GetBaseline(),
		Workers:      tuning.GetWorkers(),
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	return cfg
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("gen-lidar", version.String())
		return
	}

	if *logFile != "" {
		closer, err := monitoring.RedirectToFile(*logFile)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer closer.Close()
	}

	tuning := config.EmptyPipelineConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadPipelineConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	cfg := buildConfig(tuning)

	var store batch.Recorder
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		store = database
	}

	gen, err := batch.NewGenerator(cfg, nil, store)
	if err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := gen.Run(ctx)
	if summary != nil {
		for _, f := range summary.Frames {
			if f.Err != nil {
				log.Printf("%s: %v", f.Name, f.Err)
				continue
			}
			log.Printf("Finish Depth %s (%d points)", f.Name, f.Points)
		}
		log.Printf("run %s: %d converted, %d failed", summary.RunID, summary.Succeeded, summary.Failed)
	}
	if err != nil {
		log.Fatalf("generation stopped: %v", err)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
