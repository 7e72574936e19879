// Package display renders the light as a color swatch in the terminal, for
// trying out the sampler without hardware.
package display

import (
	"context"
	"errors"
	"image"

	tea "github.com/charmbracelet/bubbletea"

	"ambisync/internal/colormodel"
	"ambisync/internal/light"
)

// Config sizes the swatch and the thumbnail, in terminal cells.
type Config struct {
	Width          int
	Height         int
	ThumbnailWidth int
}

// DefaultConfig returns an 80x5 swatch with a 32 cell thumbnail.
func DefaultConfig() Config {
	return Config{Width: 80, Height: 5, ThumbnailWidth: 32}
}

// Light is a terminal preview. It terminates when the user quits it.
type Light struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

var (
	_ light.System    = (*Light)(nil)
	_ light.Previewer = (*Light)(nil)
)

// New starts the preview program. Options are passed to bubbletea, e.g. to
// redirect input and output.
func New(cfg Config, opts ...tea.ProgramOption) *Light {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}

	l := &Light{
		program: tea.NewProgram(newModel(cfg), opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		if _, err := l.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			l.err = err
		}
	}()
	return l
}

// HasTerminated reports whether the preview has been closed.
func (l *Light) HasTerminated() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// SetColor fills the swatch with c.
func (l *Light) SetColor(ctx context.Context, c colormodel.RGB) error {
	// A closed preview is a normal quit; the loop notices via HasTerminated.
	if l.HasTerminated() {
		return nil
	}
	l.program.Send(colorMsg{color: c})
	return nil
}

// SetThumbnail shows img below the swatch.
func (l *Light) SetThumbnail(img image.Image) {
	l.program.Send(thumbnailMsg{img: img})
}

// Reset does nothing; the preview has no state to restore.
func (l *Light) Reset(ctx context.Context) error {
	return nil
}

// Close quits the preview and restores the terminal.
func (l *Light) Close() error {
	l.program.Quit()
	<-l.done
	return l.err
}
