// Package app wires a frame source, the detector, the keypoint estimator,
// the renderer and the sinks into one pull-based pipeline.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/geometry"
	"github.com/ayusman/handpose/internal/pose"
	"github.com/ayusman/handpose/internal/render"
	"github.com/ayusman/handpose/internal/sink"
	"github.com/ayusman/handpose/internal/store"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("pipeline already ran")

// Predictor estimates keypoints for one region of a frame. *pose.Adapter is
// the production implementation.
type Predictor interface {
	InputSize() (int, int)
	Predict(frame *gocv.Mat, region geometry.Region) ([]pose.Keypoint, error)
	Close() error
}

// Config holds the components of a pipeline. The App owns all of them and
// releases them when Run returns.
type Config struct {
	Source    capture.Source
	Detector  detector.Detector
	Predictor Predictor
	Renderer  *render.Renderer
	Sink      sink.Sink

	// Threshold and TargetClass select which detections get keypoints.
	Threshold   float64
	TargetClass string

	// Store, when set, gets one run row describing this invocation and
	// every pose the pipeline estimates.
	Store        *store.Store
	DetectorName string

	ShowFPS bool
}

// App runs the pipeline once.
type App struct {
	config  Config
	showFPS atomic.Bool
	now     func() time.Time

	mu      sync.Mutex
	ran     bool
	frames  int
	runID   string
	release sync.Once
}

// New validates config and creates an App.
func New(config Config) (*App, error) {
	switch {
	case config.Source == nil:
		return nil, errors.New("app: source is required")
	case config.Detector == nil:
		return nil, errors.New("app: detector is required")
	case config.Predictor == nil:
		return nil, errors.New("app: predictor is required")
	case config.Renderer == nil:
		return nil, errors.New("app: renderer is required")
	}
	if config.Sink == nil {
		config.Sink = sink.NewMulti()
	}

	a := &App{config: config, now: time.Now}
	a.showFPS.Store(config.ShowFPS)
	return a, nil
}

// SetShowFPS toggles the FPS overlay. Safe to call while Run is active.
func (a *App) SetShowFPS(show bool) {
	a.showFPS.Store(show)
}

// ShowFPS reports whether the FPS overlay is on.
func (a *App) ShowFPS() bool {
	return a.showFPS.Load()
}

// Frames returns how many frames have been fully processed.
func (a *App) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

// RunID returns the store id of the run, or "" when no store is attached.
func (a *App) RunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runID
}

// Close releases every component without running. It is a no-op after Run.
func (a *App) Close() error {
	return a.releaseAll()
}

// releaseAll closes the source, sinks and models exactly once.
func (a *App) releaseAll() error {
	var err error
	a.release.Do(func() {
		var errs []error
		if a.config.Source.IsOpen() {
			if cerr := a.config.Source.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close source: %w", cerr))
			}
		}
		if cerr := a.config.Sink.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close sinks: %w", cerr))
		}
		if cerr := a.config.Detector.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", cerr))
		}
		if cerr := a.config.Predictor.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close estimator: %w", cerr))
		}
		err = errors.Join(errs...)
	})
	return err
}

// startRun records the run and appends a recorder to the sinks.
func (a *App) startRun() {
	if a.config.Store == nil {
		return
	}
	run := &store.Run{
		Input:    a.config.Source.Name(),
		Mode:     string(a.config.Source.Kind()),
		Detector: a.config.DetectorName,
	}
	if err := a.config.Store.Runs().Create(run); err != nil {
		log.Printf("Failed to record run: %v", err)
		return
	}
	a.mu.Lock()
	a.runID = run.ID
	a.mu.Unlock()

	a.config.Sink = sink.NewMulti(a.config.Sink, sink.NewRecorder(a.config.Store, run.ID))
	log.Debugf("recording run %s", run.ID)
}

func (a *App) finishRun(status store.RunStatus, runErr error) {
	id := a.RunID()
	if a.config.Store == nil || id == "" {
		return
	}
	if err := a.config.Store.Runs().Finish(id, status, a.Frames(), runErr); err != nil {
		log.Printf("Failed to finish run %s: %v", id, err)
	}
}
