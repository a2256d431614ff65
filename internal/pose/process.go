package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// idleTimeout is how long the helper process may sit unused before it is
// shut down. The next Estimate starts it again.
const idleTimeout = 30 * time.Second

// Process implements Estimator by talking to a helper process over
// stdin/stdout. Each request is a length-prefixed JSON header followed by a
// length-prefixed JPEG patch; each reply is one JSON line.
type Process struct {
	config    Config
	args      []string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewProcess creates a helper-process estimator.
// The process is started lazily on first estimation.
func NewProcess(cfg Config) (*Process, error) {
	args := strings.Fields(cfg.ServiceCmd)
	if len(args) == 0 {
		return nil, fmt.Errorf("pose service command is empty")
	}
	return &Process{config: cfg, args: args}, nil
}

// Estimate sends patch to the helper and parses its keypoints.
func (p *Process) Estimate(patch gocv.Mat, norm Normalization) ([]Keypoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if patch.Empty() {
		return nil, fmt.Errorf("empty patch")
	}

	if err := p.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	defer buf.Close()

	header := requestHeader{
		Width:  patch.Cols(),
		Height: patch.Rows(),
		Joints: p.config.NumJoints,
		Mean:   norm.Mean,
		Std:    norm.Std,
	}
	if err := writeRequest(p.stdin, header, buf.GetBytes()); err != nil {
		p.shutdown()
		return nil, err
	}

	line, err := p.stdout.ReadString('\n')
	if err != nil {
		p.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	kps, err := parseResponse([]byte(line), p.config.NumJoints)
	if err != nil {
		return nil, err
	}

	p.resetIdleTimer()
	return kps, nil
}

// Close shuts down the helper process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

func (p *Process) ensureStarted() error {
	if p.started {
		return nil
	}

	name, args := p.args[0], p.args[1:]
	if strings.HasPrefix(name, "python") {
		if venv := findVenvPython(); venv != "" {
			name = venv
		}
	}

	p.cmd = exec.Command(name, args...)

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	p.cmd.Stderr = os.Stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	log.Debugf("pose: started service %s (pid %d)", name, p.cmd.Process.Pid)

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true

	return nil
}

func (p *Process) shutdown() error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}

	if p.stdin != nil {
		p.stdin.Close()
	}

	err := p.cmd.Wait()
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil

	return err
}

func (p *Process) resetIdleTimer() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(idleTimeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.shutdown(); err != nil {
			log.Debugf("pose: idle shutdown: %v", err)
		}
	})
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handpose/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// requestHeader describes the patch that follows it.
type requestHeader struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Joints int        `json:"joints"`
	Mean   [3]float64 `json:"mean"`
	Std    [3]float64 `json:"std"`
}

// writeRequest writes header and patch, each prefixed with its length as
// 4 bytes big-endian.
func writeRequest(w io.Writer, header requestHeader, patch []byte) error {
	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if err := writeFrame(w, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeFrame(w, patch); err != nil {
		return fmt.Errorf("write patch: %w", err)
	}
	return nil
}

func writeFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// response is the JSON line the helper answers with.
type response struct {
	Keypoints [][3]float64 `json:"keypoints"`
	Error     string       `json:"error,omitempty"`
}

// parseResponse decodes a reply. joints > 0 requires exactly that many
// keypoints.
func parseResponse(line []byte, joints int) ([]Keypoint, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}
	if joints > 0 && len(resp.Keypoints) != joints {
		return nil, fmt.Errorf("pose service returned %d keypoints, want %d", len(resp.Keypoints), joints)
	}

	kps := make([]Keypoint, len(resp.Keypoints))
	for i, k := range resp.Keypoints {
		kps[i] = Keypoint{X: k[0], Y: k[1], Score: k[2]}
	}
	return kps, nil
}
