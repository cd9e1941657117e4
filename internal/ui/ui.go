// Package ui renders terminal output for run summaries. Colors are applied
// only when stdout is a terminal that supports them; piped output stays
// plain so the CLI composes with shell tooling.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

// Renderer styles text for one output stream.
type Renderer struct {
	colored bool
}

// New builds a Renderer for out, enabling color when out is a terminal
// with a color profile.
func New(out io.Writer) *Renderer {
	colored := false
	if f, ok := out.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) &&
			termenv.EnvColorProfile() != termenv.Ascii
	}
	return &Renderer{colored: colored}
}

// Stdout returns a Renderer for standard output.
func Stdout() *Renderer {
	return New(os.Stdout)
}

func (r *Renderer) render(style lipgloss.Style, s string) string {
	if !r.colored {
		return s
	}
	return style.Render(s)
}

// Pass styles success text.
func (r *Renderer) Pass(s string) string { return r.render(passStyle, s) }

// Warn styles warning text.
func (r *Renderer) Warn(s string) string { return r.render(warnStyle, s) }

// Fail styles failure text.
func (r *Renderer) Fail(s string) string { return r.render(failStyle, s) }

// Accent styles highlighted text such as category names and counts.
func (r *Renderer) Accent(s string) string { return r.render(accentStyle, s) }

var defaultRenderer = Stdout()

// RenderPass styles success text for stdout.
func RenderPass(s string) string { return defaultRenderer.Pass(s) }

// RenderWarn styles warning text for stdout.
func RenderWarn(s string) string { return defaultRenderer.Warn(s) }

// RenderFail styles failure text for stdout.
func RenderFail(s string) string { return defaultRenderer.Fail(s) }

// RenderAccent styles highlighted text for stdout.
func RenderAccent(s string) string { return defaultRenderer.Accent(s) }
