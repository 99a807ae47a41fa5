// Command stereo-bev rasterises a directory of predicted disparity maps into
// BEV images, records each frame in the run catalogue and can serve the
// latest raster over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/config"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/db"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/monitoring"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/monitor"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pipeline"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/version"
)

var (
	disparityDir = flag.String("disparity-dir", "", "Directory of disparity maps (.png, .npy, .tif)")
	calibDir     = flag.String("calib-dir", "", "Directory of KITTI calibration .txt files")
	outDir       = flag.String("out-dir", "", "Write per-channel BEV PNGs here (empty disables rendering)")
	configPath   = flag.String("config", "", "Pipeline config JSON (defaults built in)")
	dbPath       = flag.String("db", "", "Record the run into this sqlite catalogue")
	listen       = flag.String("listen", "", "Serve the monitor on this address, e.g. :8081")
	verbose      = flag.Bool("verbose", false, "Log per-stage timings for every frame")
	logFile      = flag.String("log-file", "", "Append diagnostic logs to this file instead of stderr")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("stereo-bev", version.String())
		return
	}
	if *disparityDir == "" || *calibDir == "" {
		log.Fatal("-disparity-dir and -calib-dir are required")
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
	opts := pipeline.OptionsFromTuning(tuning)
	opts.Verbose = *verbose
	est, err := pipeline.NewEstimator(nil, opts)
	if err != nil {
		log.Fatalf("failed to create estimator: %v", err)
	}

	proc := &processor{
		est:          est,
		disparityDir: *disparityDir,
		calibDir:     *calibDir,
		outDir:       *outDir,
		configJSON:   tuning.JSON(),
	}

	var database *db.DB
	if *dbPath != "" {
		database, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		proc.store = database
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *listen != "" {
		ws, err := monitor.NewWebServer(monitor.WebServerConfig{Address: *listen, DB: database})
		if err != nil {
			log.Fatalf("failed to create monitor: %v", err)
		}
		proc.pub = ws
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(ctx); err != nil {
				log.Printf("monitor server: %v", err)
				stop()
			}
		}()
	}

	s, err := proc.run(ctx)
	if s != nil {
		log.Printf("run %s: %d rasterised, %d failed", s.RunID, s.Succeeded, s.Failed)
	}
	if err != nil && err != context.Canceled {
		log.Printf("processing stopped: %v", err)
	}

	if *listen != "" {
		log.Printf("serving monitor on %s, interrupt to exit", *listen)
		<-ctx.Done()
	}
	stop()
	wg.Wait()
}
