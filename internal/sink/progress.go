package sink

import (
	"io"

	"github.com/cheggaaa/pb/v3"
	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// Progress draws a terminal progress bar over a finite input. The total is
// looked up on the first frame because sources only know their length once
// opened; a total of zero or less leaves the bar open-ended.
type Progress struct {
	out   io.Writer
	total func() int
	bar   *pb.ProgressBar
}

// NewProgress reports to out. total may be nil.
func NewProgress(out io.Writer, total func() int) *Progress {
	return &Progress{out: out, total: total}
}

func (p *Progress) Write(frame *gocv.Mat, r *result.Frame) error {
	if p.bar == nil {
		n := 0
		if p.total != nil {
			n = p.total()
		}
		p.bar = pb.New(n)
		p.bar.SetWriter(p.out)
		p.bar.Start()
	}
	p.bar.Increment()
	return nil
}

// Frames is how many frames the bar has counted.
func (p *Progress) Frames() int64 {
	if p.bar == nil {
		return 0
	}
	return p.bar.Current()
}

func (p *Progress) Close() error {
	if p.bar != nil {
		p.bar.Finish()
	}
	return nil
}
