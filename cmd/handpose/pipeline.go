package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/handpose/internal/app"
	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/pose"
	"github.com/ayusman/handpose/internal/render"
	"github.com/ayusman/handpose/internal/server"
	"github.com/ayusman/handpose/internal/sink"
	"github.com/ayusman/handpose/internal/store"
)

// pipeline is everything run needs once setup succeeded.
type pipeline struct {
	app   *app.App
	hub   *server.Hub
	store *store.Store
	input string
}

func (p *pipeline) close() {
	if err := p.app.Close(); err != nil {
		log.Printf("Error releasing pipeline: %v", err)
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}

// build loads the models and assembles the sinks selected by opts. On
// failure everything created so far is released.
func build(cfg *config.Config, src capture.Source, opts *options, stderr io.Writer) (p *pipeline, err error) {
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	skel, err := cfg.Skeleton()
	if err != nil {
		return nil, err
	}

	detCfg := cfg.DetectorConfig()
	det, err := detector.New(detCfg)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}
	closers = append(closers, det.Close)
	log.Printf("=> loaded %s detector from %s", detCfg.Backend, detCfg.ModelPath)

	poseCfg := cfg.PoseConfig()
	est, err := pose.New(poseCfg)
	if err != nil {
		return nil, fmt.Errorf("load pose model: %w", err)
	}
	closers = append(closers, est.Close)
	log.Printf("=> loaded %s pose estimator (%d joints, %dx%d)", poseCfg.Backend, poseCfg.NumJoints,
		poseCfg.ImageWidth, poseCfg.ImageHeight)

	p = &pipeline{input: src.Name()}

	if opts.db != "" {
		if dir := filepath.Dir(opts.db); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		st, err := store.New(opts.db)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		closers = append(closers, st.Close)
		p.store = st
	}

	var sinks []sink.Sink
	if opts.write {
		sinks = append(sinks, outputSink(cfg, src.Kind()))
	}
	if opts.display {
		sinks = append(sinks, sink.NewWindow(src.Kind() == capture.KindImage))
	}
	if opts.progress {
		if counted, ok := src.(interface{ FrameCount() int }); ok {
			sinks = append(sinks, sink.NewProgress(stderr, counted.FrameCount))
		} else {
			log.Warnf("--progress has no effect on %s input", src.Kind())
		}
	}
	if opts.serve != "" {
		p.hub = server.NewHub()
		sinks = append(sinks, p.hub)
	}
	if len(sinks) == 0 && p.store == nil {
		log.Warn("No output selected (--write, --display, --serve or --db); results are discarded")
	}

	a, err := app.New(app.Config{
		Source:       src,
		Detector:     det,
		Predictor:    pose.NewAdapter(est, poseCfg),
		Renderer:     render.New(skel),
		Sink:         sink.NewMulti(sinks...),
		Threshold:    cfg.Detector.Threshold,
		TargetClass:  cfg.Detector.TargetClass,
		Store:        p.store,
		DetectorName: string(detCfg.Backend),
		ShowFPS:      opts.showFPS,
	})
	if err != nil {
		return nil, err
	}
	p.app = a
	return p, nil
}

// outputSink picks the file writer for the input kind.
func outputSink(cfg *config.Config, kind capture.Kind) sink.Sink {
	if kind == capture.KindImage {
		return sink.NewImageWriter(cfg.Output.ImagePath)
	}
	return sink.NewVideoWriter(cfg.Output.VideoPath, cfg.Output.FourCC, cfg.Output.FPS)
}
