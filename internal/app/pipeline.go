package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/geometry"
	"github.com/ayusman/handpose/internal/render"
	"github.com/ayusman/handpose/internal/result"
	"github.com/ayusman/handpose/internal/sink"
	"github.com/ayusman/handpose/internal/store"
)

// Run reads frames until the source is exhausted, a sink asks to stop, an
// error occurs or ctx is cancelled. Cancellation is checked between frames.
//
// Per frame:
//  1. read the next frame
//  2. detect boxes and keep those of the target class above the threshold
//  3. map each box to a region and estimate its keypoints
//  4. draw boxes, skeletons and the optional FPS overlay
//  5. hand the annotated frame to the sinks
//
// The end of a video file and a stop request from a sink return nil. A
// failed read returns the source's *capture.StreamReadError and a cancelled
// context returns ctx.Err(). Every component is released before Run returns.
func (a *App) Run(ctx context.Context) (err error) {
	a.mu.Lock()
	if a.ran {
		a.mu.Unlock()
		return ErrAlreadyRun
	}
	a.ran = true
	a.mu.Unlock()

	a.startRun()
	defer func() {
		if cerr := a.releaseAll(); cerr != nil {
			log.Printf("Error releasing pipeline: %v", cerr)
			if err == nil {
				err = cerr
			}
		}
		a.finishRun(runStatus(err), err)
	}()

	src := a.config.Source
	if err := src.Open(); err != nil {
		return fmt.Errorf("open %s %s: %w", src.Kind(), src.Name(), err)
	}
	log.Printf("Reading %s %s", src.Kind(), src.Name())

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			log.Printf("Pipeline cancelled after %d frames", a.Frames())
			return err
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			log.Printf("End of input after %d frames", a.Frames())
			return nil
		}
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			return err
		}

		err = a.step(frame, index, src.Kind() == capture.KindImage)
		frame.Close()

		if errors.Is(err, sink.ErrStop) {
			log.Printf("Stopped by user after %d frames", a.Frames())
			return nil
		}
		if err != nil {
			return err
		}

		a.mu.Lock()
		a.frames++
		a.mu.Unlock()
	}
}

// step processes one frame in place and writes it to the sinks. The rate
// covers detection, estimation and drawing; the overlay goes on last.
func (a *App) step(frame *gocv.Mat, index int, last bool) error {
	start := a.now()

	r, err := a.process(frame, index)
	if err != nil {
		return err
	}
	r.Last = last

	a.config.Renderer.Draw(frame, r, false)

	if elapsed := a.now().Sub(start).Seconds(); elapsed > 0 {
		r.FPS = 1 / elapsed
	}
	log.Debugf("frame %d: %d detections, %d poses, %.2f fps", index, len(r.Detections), len(r.Poses), r.FPS)

	if a.showFPS.Load() {
		render.DrawFPS(frame, r.FPS)
	}

	return a.config.Sink.Write(frame, r)
}

// process runs detection and pose estimation on frame.
func (a *App) process(frame *gocv.Mat, index int) (*result.Frame, error) {
	r := &result.Frame{
		Index:     index,
		Timestamp: a.now(),
		Width:     frame.Cols(),
		Height:    frame.Rows(),
	}

	dets, err := a.config.Detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect frame %d: %w", index, err)
	}
	r.Detections = detector.Filter(dets, a.config.Threshold, a.config.TargetClass)

	width, height := a.config.Predictor.InputSize()
	for _, d := range r.Detections {
		region, err := geometry.BoxToRegion(d.Box, width, height)
		if err != nil {
			var invalid *geometry.InvalidBoxError
			if errors.As(err, &invalid) {
				log.Printf("Skipping box in frame %d: %v", index, err)
				continue
			}
			return nil, err
		}

		kps, err := a.config.Predictor.Predict(frame, region)
		if err != nil {
			return nil, fmt.Errorf("estimate frame %d: %w", index, err)
		}
		r.Poses = append(r.Poses, result.Pose{Detection: d, Region: region, Keypoints: kps})
	}

	return r, nil
}

func runStatus(err error) store.RunStatus {
	switch {
	case err == nil:
		return store.RunStatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.RunStatusCancelled
	default:
		return store.RunStatusFailed
	}
}
