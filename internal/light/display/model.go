package display

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"ambisync/internal/colormodel"
)

type colorMsg struct {
	color colormodel.RGB
}

type thumbnailMsg struct {
	img image.Image
}

type model struct {
	width      int
	height     int
	thumbWidth int

	spinner spinner.Model
	color   colormodel.RGB
	updates int
	thumb   image.Image
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newModel(cfg Config) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return model{
		width:      cfg.Width,
		height:     cfg.Height,
		thumbWidth: cfg.ThumbnailWidth,
		spinner:    s,
		color:      colormodel.White,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case colorMsg:
		m.color = msg.color
		m.updates++

	case thumbnailMsg:
		m.thumb = msg.img
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n %s %s\n\n", m.spinner.View(), titleStyle.Render("Ambient light preview"))

	swatch := lipgloss.NewStyle().Background(lipgloss.Color(m.color.String()))
	row := swatch.Render(strings.Repeat(" ", m.width))
	for range m.height {
		b.WriteString(row + "\n")
	}
	b.WriteString("\n" + m.status() + "\n")

	if thumb := renderThumbnail(m.thumb, m.thumbWidth); thumb != "" {
		b.WriteString("\n" + thumb)
	}

	b.WriteString("\n" + helpStyle.Render("  q/esc quit") + "\n")
	return b.String()
}

func (m model) status() string {
	l := colormodel.PerceivedLightness(m.color)
	return fmt.Sprintf("  %s  L* %.1f  brightness %d%%  updates %d",
		m.color, l, colormodel.PercentageOf(l, 100), m.updates)
}

// renderThumbnail draws img width cells wide using half blocks, two pixel
// rows per terminal line.
func renderThumbnail(img image.Image, width int) string {
	if img == nil || width <= 0 || img.Bounds().Empty() {
		return ""
	}
	small := resize.Resize(uint(width), 0, img, resize.NearestNeighbor)
	bounds := small.Bounds()

	var b strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		b.WriteString("  ")
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(cellColor(small, x, y))
			if y+1 < bounds.Max.Y {
				style = style.Background(cellColor(small, x, y+1))
			}
			b.WriteString(style.Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellColor(img image.Image, x, y int) lipgloss.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return lipgloss.Color(colormodel.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}.String())
}
