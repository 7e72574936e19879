package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
	"time"
)

const firstFrameTimeout = 5 * time.Second

// frameStream keeps the most recent raw RGB24 frame read from a capture
// child process.
type frameStream struct {
	width, height int
	done          chan struct{}
	ready         chan struct{} // closed when first frame is available

	mu    sync.Mutex
	frame []byte
}

func newFrameStream(w, h int) *frameStream {
	return &frameStream{
		width:  w,
		height: h,
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
}

func (s *frameStream) frameSize() int {
	return s.width * s.height * 3
}

func (s *frameStream) readFrames(r io.Reader) {
	defer close(s.done)
	buf := make([]byte, s.frameSize())
	first := true
	for {
		_, err := io.ReadFull(r, buf)
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.frame == nil {
			s.frame = make([]byte, len(buf))
		}
		copy(s.frame, buf)
		s.mu.Unlock()
		if first {
			close(s.ready)
			first = false
		}
	}
}

// waitReady blocks until the first frame arrives, the stream ends, or the
// timeout passes.
func (s *frameStream) waitReady(timeout time.Duration) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		select {
		case <-s.ready:
			return nil
		default:
		}
		return fmt.Errorf("stream ended before first frame")
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for first frame")
	}
}

func (s *frameStream) CaptureFull() (*image.RGBA, error) {
	return s.CaptureRegion(image.Rect(0, 0, s.width, s.height))
}

// CaptureRegion crops the latest frame. The lock is held while copying so
// the reader cannot overwrite the frame mid-copy.
func (s *frameStream) CaptureRegion(r image.Rectangle) (*image.RGBA, error) {
	if err := checkRegion(r, s.width, s.height); err != nil {
		return nil, err
	}
	select {
	case <-s.done:
		return nil, fmt.Errorf("%w: capture stream stopped", ErrCapture)
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, fmt.Errorf("%w: no frame captured yet", ErrCapture)
	}
	return rgb24ToRGBA(s.frame, s.width, r), nil
}

// reap waits for a capture child process stopped through ctx. The kill caused
// by cancelling ctx is not an error; an exit status the process reported on
// its own is.
func reap(ctx context.Context, cmd *exec.Cmd) error {
	err := cmd.Wait()
	if err == nil || ctx.Err() == nil {
		return err
	}
	if errors.Is(err, ctx.Err()) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}
	return err
}
