package pose

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocv.io/x/gocv"
)

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	header := requestHeader{Width: 192, Height: 256, Joints: 21, Mean: DefaultNormalization().Mean, Std: DefaultNormalization().Std}
	patch := []byte{0xff, 0xd8, 0xff, 0xd9}

	if err := writeRequest(&buf, header, patch); err != nil {
		t.Fatalf("writeRequest() error = %v", err)
	}

	hdr, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	var got requestHeader
	if err := json.Unmarshal(hdr, &got); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if diff := cmp.Diff(header, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	body, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("read patch: %v", err)
	}
	if !bytes.Equal(body, patch) {
		t.Errorf("patch = %x, want %x", body, patch)
	}

	if _, err := readFrame(&buf); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		joints  int
		want    []Keypoint
		wantErr bool
	}{
		{
			name:   "two keypoints",
			line:   `{"keypoints":[[1,2,0.5],[3,4,0.25]]}` + "\n",
			joints: 2,
			want:   []Keypoint{{X: 1, Y: 2, Score: 0.5}, {X: 3, Y: 4, Score: 0.25}},
		},
		{
			name:   "any count when joints unset",
			line:   `{"keypoints":[[1,2,0.5]]}`,
			joints: 0,
			want:   []Keypoint{{X: 1, Y: 2, Score: 0.5}},
		},
		{
			name:    "count mismatch",
			line:    `{"keypoints":[[1,2,0.5]]}`,
			joints:  21,
			wantErr: true,
		},
		{
			name:    "service error",
			line:    `{"error":"model not loaded"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			line:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse([]byte(tt.line), tt.joints)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewProcess_EmptyCommand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceCmd = "   "

	if _, err := NewProcess(cfg); err == nil {
		t.Error("expected error for empty service command")
	}
}

// TestHelperProcess is not a real test. It is re-executed by
// TestProcess_Estimate as the pose service: it answers every request with
// all joints at the patch center.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("HANDPOSE_WANT_HELPER_PROCESS") != "1" {
		return
	}

	in := bufio.NewReader(os.Stdin)
	for {
		hdr, err := readFrame(in)
		if err != nil {
			os.Exit(0)
		}
		if _, err := readFrame(in); err != nil {
			os.Exit(1)
		}

		var h requestHeader
		if err := json.Unmarshal(hdr, &h); err != nil {
			fmt.Printf("{\"error\":%q}\n", err.Error())
			continue
		}

		resp := response{}
		for i := 0; i < h.Joints; i++ {
			resp.Keypoints = append(resp.Keypoints, [3]float64{float64(h.Width) / 2, float64(h.Height) / 2, 0.75})
		}
		line, _ := json.Marshal(resp)
		fmt.Println(string(line))
	}
}

func TestProcess_Estimate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping helper process test in short mode")
	}
	t.Setenv("HANDPOSE_WANT_HELPER_PROCESS", "1")

	cfg := DefaultConfig()
	cfg.Backend = BackendProcess
	cfg.NumJoints = 3
	cfg.ServiceCmd = os.Args[0] + " -test.run=^TestHelperProcess$"

	est, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer est.Close()

	patch := gocv.NewMatWithSize(256, 192, gocv.MatTypeCV8UC3)
	defer patch.Close()

	for i := 0; i < 2; i++ {
		kps, err := est.Estimate(patch, DefaultNormalization())
		if err != nil {
			t.Fatalf("Estimate() call %d error = %v", i, err)
		}

		want := []Keypoint{
			{X: 96, Y: 128, Score: 0.75},
			{X: 96, Y: 128, Score: 0.75},
			{X: 96, Y: 128, Score: 0.75},
		}
		if diff := cmp.Diff(want, kps); diff != "" {
			t.Errorf("Estimate() call %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	if err := est.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// readFrame reads one length-prefixed block, the way the helper does.
func readFrame(r io.Reader) ([]byte, error) {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint32(length))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
