package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handpose/internal/capture"
	"github.com/ayusman/handpose/internal/config"
	"github.com/ayusman/handpose/internal/server"
	"github.com/ayusman/handpose/internal/tray"
)

// Exit statuses.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

const usage = `Usage: handpose [flags] (--video path | --webcam [--device n] | --image path) [KEY VALUE ...]

Detects hands (or people) in the input, estimates their keypoints and draws
the skeletons. Trailing KEY VALUE pairs override configuration entries, for
example TEST.MODEL_FILE models/pose.onnx.

Flags:
`

// options are the parsed command line.
type options struct {
	cfgPath   string
	cfgSet    bool
	selection capture.Selection
	write     bool
	showFPS   bool
	progress  bool
	display   bool
	serve     string
	db        string
	tray      bool
	debug     bool
	overrides []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	log.SetOutput(stderr)
	if opts.debug {
		log.SetLevel(log.DebugLevel)
	}

	src, err := capture.Select(opts.selection)
	if err != nil {
		fmt.Fprintf(stderr, "handpose: %v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}

	cfg, err := config.Load(opts.cfgPath, opts.cfgSet, opts.overrides)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		return exitRuntime
	}

	p, err := build(cfg, src, opts, stderr)
	if err != nil {
		log.Errorf("Failed to set up pipeline: %v", err)
		return exitRuntime
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(execute(ctx, p, opts))
}

// parseFlags parses args. Everything after the last flag is a KEY VALUE
// override.
func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{}
	fs := newFlagSet(opts, output)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "cfg" {
			opts.cfgSet = true
		}
	})
	opts.overrides = fs.Args()
	if len(opts.overrides)%2 != 0 {
		err := fmt.Errorf("configuration overrides must be KEY VALUE pairs, got %v", opts.overrides)
		fmt.Fprintf(output, "handpose: %v\n", err)
		return nil, err
	}
	return opts, nil
}

// newFlagSet binds every command line flag to opts.
func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("handpose", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { printUsage(output) }

	fs.StringVar(&opts.cfgPath, "cfg", config.DefaultPath, "configuration `file`")
	fs.StringVar(&opts.selection.Video, "video", "", "read frames from a video `file`")
	fs.BoolVar(&opts.selection.Webcam, "webcam", false, "read frames from a webcam")
	fs.IntVar(&opts.selection.Device, "device", 0, "webcam device `index`")
	fs.StringVar(&opts.selection.Image, "image", "", "read a single still `image`")
	fs.BoolVar(&opts.write, "write", false, "write the annotated video or image")
	fs.BoolVar(&opts.showFPS, "showFps", false, "draw the processing rate on each frame")
	fs.BoolVar(&opts.progress, "progress", false, "draw a progress bar while reading a video file")
	fs.BoolVar(&opts.display, "display", false, "show frames in a window (q or Esc stops)")
	fs.StringVar(&opts.serve, "serve", "", "serve the live stream and run log on `addr`")
	fs.StringVar(&opts.db, "db", "", "record runs and keypoints into a SQLite `file`")
	fs.BoolVar(&opts.tray, "tray", false, "show a system tray control")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	return fs
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
	newFlagSet(&options{}, w).PrintDefaults()
}

// execute runs the pipeline alongside the optional server and tray. The
// tray owns the main goroutine when enabled.
func execute(ctx context.Context, p *pipeline, opts *options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if opts.serve != "" {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     p.store,
			Hub:       p.hub,
		})
		g.Go(func() error {
			return srv.Run(gctx, opts.serve)
		})
	}

	if !opts.tray {
		err := p.app.Run(gctx)
		cancel()
		return errors.Join(err, g.Wait())
	}

	tr := tray.New(p.input, p.app.ShowFPS())
	tr.OnToggleFPS(p.app.SetShowFPS)
	tr.OnStop(cancel)
	if opts.serve != "" {
		tr.OnOpen(func() { openBrowser("http://" + browseAddr(opts.serve) + "/api/stream") })
	}

	g.Go(func() error {
		defer cancel()
		defer tr.Quit()
		return p.app.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				tr.SetFrames(p.app.Frames())
			}
		}
	})

	tr.Run()
	cancel()
	return g.Wait()
}

// exitCode logs err and maps it to a process status. Cancellation is a
// clean exit.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) && !hasOtherError(err) {
		log.Println("Interrupted")
		return exitOK
	}
	log.Errorf("handpose: %v", err)
	return exitRuntime
}

// hasOtherError reports whether a joined error carries anything besides
// cancellation.
func hasOtherError(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return !errors.Is(err, context.Canceled)
	}
	for _, e := range joined.Unwrap() {
		if e != nil && hasOtherError(e) {
			return true
		}
	}
	return false
}

// browseAddr turns a listen address such as ":8080" into one a browser
// can open.
func browseAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handpose/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handpose", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
