package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// ffmpegCapturer streams native resolution frames from ffmpeg's x11grab.
type ffmpegCapturer struct {
	*frameStream
	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

func newFFmpegCapturer(opts Options) (Capturer, string, error) {
	if !hasExecutable("ffmpeg") {
		return nil, "", fmt.Errorf("ffmpeg not found")
	}

	display := os.Getenv("DISPLAY")
	if display == "" {
		return nil, "", fmt.Errorf("DISPLAY not set")
	}

	bounds, err := displayBounds(opts.Display)
	if err != nil {
		return nil, "", err
	}
	w, h := bounds.Dx(), bounds.Dy()

	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-nostdin",
		"-loglevel", "error",
		"-f", "x11grab",
		"-framerate", strconv.Itoa(opts.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-i", fmt.Sprintf("%s.0+%d,%d", display, bounds.Min.X, bounds.Min.Y),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, "", fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, "", fmt.Errorf("starting ffmpeg: %w", err)
	}

	c := &ffmpegCapturer{
		frameStream: newFrameStream(w, h),
		ctx:         ctx,
		cancel:      cancel,
		cmd:         cmd,
	}

	go c.readFrames(stdout)

	// Wait for the first frame so CaptureFull is immediately usable.
	if err := c.waitReady(firstFrameTimeout); err != nil {
		c.cancel()
		<-c.done
		_ = c.cmd.Wait()
		return nil, "", fmt.Errorf("ffmpeg: %w", err)
	}

	return c, "FFmpeg", nil
}

func (c *ffmpegCapturer) Close() error {
	c.cancel()
	<-c.done
	return reap(c.ctx, c.cmd)
}
