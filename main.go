package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/doorway-data/headcount/internal/api"
	"github.com/doorway-data/headcount/internal/capture"
	"github.com/doorway-data/headcount/internal/classify"
	"github.com/doorway-data/headcount/internal/config"
	"github.com/doorway-data/headcount/internal/db"
	"github.com/doorway-data/headcount/internal/detect"
	"github.com/doorway-data/headcount/internal/pipeline"
	"github.com/doorway-data/headcount/internal/render"
	"github.com/doorway-data/headcount/internal/version"
)

var (
	source      = flag.String("source", "0", "Video source: device index, file path or stream URL")
	camera      = flag.String("camera", "door-1", "Camera label stamped on every record")
	dbFile      = flag.String("db", "headcount.db", "SQLite database path")
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	modelFile   = flag.String("model", "yolov8n.onnx", "Person detection model (ONNX)")
	tuningFile  = flag.String("tuning", "", "Optional tuning overrides (JSON)")
	referenceCm = flag.Float64("reference-cm", 210, "Real height of the calibration reference in cm")
	useGPU      = flag.Bool("gpu", false, "Prefer a CUDA DNN backend when available")
	headless    = flag.Bool("headless", false, "Run without a display window (disables calibration input)")
)

const windowTitle = "headcount"

// mouseEventLeftButtonDown is OpenCV's cv::EVENT_LBUTTONDOWN; gocv's
// SetMouseHandler reports events as raw ints without named constants.
const mouseEventLeftButtonDown = 1

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.DefaultTuning()
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuning(*tuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	detector, err := detect.NewYOLODetector(*modelFile, *useGPU)
	if err != nil {
		log.Fatalf("Failed to load detector: %v", err)
	}
	defer detector.Close()

	src, err := capture.OpenVideo(*source)
	if err != nil {
		log.Fatalf("Failed to open video source: %v", err)
	}

	// The frame height fixes the crossing line for the whole run, so read
	// one probe frame before the pipeline starts.
	probe := gocv.NewMat()
	if !src.Read(&probe) {
		probe.Close()
		log.Fatalf("Failed to read an initial frame from %q", *source)
	}
	frameHeight := probe.Rows()
	probe.Close()

	sessionID := uuid.NewString()
	log.Printf("headcount %s: session %s on camera %s (%d px frame height)",
		version.String(), sessionID, *camera, frameHeight)

	sink := pipeline.NewRetrySink(
		&pipeline.DBSink{DB: database, Camera: *camera, SessionID: sessionID},
		tuning.GetSinkAttempts(),
		tuning.GetSinkRetryDelay(),
		uint64(tuning.GetDropWarnThreshold()),
	)

	pipe := pipeline.New(pipeline.Config{
		LineFraction:    tuning.GetLineFraction(),
		FrameHeight:     frameHeight,
		MatchDistancePx: tuning.GetMatchDistancePx(),
		HistoryLen:      tuning.GetHistoryLen(),
		MinConfidence:   tuning.GetMinConfidence(),
		Thresholds: classify.Thresholds{
			ChildMaxCm:     tuning.GetChildMaxCm(),
			TeenMaxCm:      tuning.GetTeenMaxCm(),
			WomanMinAspect: tuning.GetWomanMinAspect(),
		},
		Sink: sink,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slot := capture.NewSlot()
	wg.Add(1)
	go func() {
		defer wg.Done()
		capture.Pump(ctx, src, slot)
		log.Print("capture routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(database, api.Info{
			Camera:    *camera,
			SessionID: sessionID,
			StartedAt: time.Now().UTC(),
		})
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(srv.ServeMux()),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Print("HTTP server routine stopped")
	}()

	runCfg := pipeline.RunConfig{
		Slot:      slot,
		Detector:  detector,
		FrameSkip: tuning.GetFrameSkip(),
	}

	if *headless {
		if err := pipe.Run(ctx, runCfg); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
	} else {
		runWithWindow(ctx, stop, pipe, sink, runCfg)
	}
	stop()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// runWithWindow runs the pipeline with a display window, wiring keyboard
// and mouse input to calibration mode. Keys: c enters calibration mode
// or confirms it once both points are marked, r redoes the points,
// q or ESC quits.
func runWithWindow(ctx context.Context, stop context.CancelFunc, pipe *pipeline.Pipeline, sink *pipeline.RetrySink, runCfg pipeline.RunConfig) {
	window := gocv.NewWindow(windowTitle)
	defer window.Close()

	window.SetMouseHandler(func(event int, x int, y int, flags int, userdata interface{}) {
		if event == mouseEventLeftButtonDown {
			pipe.RecordCalibrationPoint(float64(x), float64(y))
		}
	}, nil)

	runCfg.Annotate = func(img *gocv.Mat, events []pipeline.Event) {
		counters := pipe.Counters()
		render.Draw(img, render.State{
			Live:         pipe.Live(),
			LineY:        pipe.LineY(),
			Entries:      counters.Entries,
			Exits:        counters.Exits,
			PeopleInside: counters.PeopleInside,
			Calibration:  pipe.Calibration(),
			Degraded:     sink.Degraded(),
			Camera:       *camera,
		})
	}
	runCfg.Display = func(img gocv.Mat) {
		window.IMShow(img)
		switch window.WaitKey(1) {
		case 'q', 27:
			stop()
		case 'c':
			if pipe.Calibration().InMode() {
				if err := pipe.ConfirmCalibration(); err != nil {
					log.Printf("calibration not confirmed: %v", err)
				} else {
					log.Print("calibration confirmed")
				}
			} else {
				pipe.StartCalibration(*referenceCm)
				log.Printf("calibration mode: mark top and bottom of the %vcm reference", *referenceCm)
			}
		case 'r':
			pipe.ResetCalibration()
		}
	}

	if err := pipe.Run(ctx, runCfg); err != nil && err != context.Canceled {
		log.Printf("pipeline stopped: %v", err)
	}
}
