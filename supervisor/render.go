package supervisor

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	colorCyan  = lipgloss.Color("#00D7FF")
	colorGreen = lipgloss.Color("#5FD75F")
	colorRed   = lipgloss.Color("#FF5F5F")
	colorGray  = lipgloss.Color("#808080")
)

// Renderer turns agent progress lines into terminal output: markdown via
// glamour where it reads as prose, plain colorized lines where it's a
// short status. Falls back to uncolored text on a non-tty stream.
type Renderer struct {
	md       *glamour.TermRenderer
	colorize bool
}

func NewRenderer() *Renderer {
	md, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	return &Renderer{
		md:       md,
		colorize: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

func (r *Renderer) Banner() string {
	title := lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Render("autoweb")
	sub := lipgloss.NewStyle().Foreground(colorGray).Render("type a task, \"qa <question>\", or \"exit\"")
	return fmt.Sprintf("%s\n%s\n", title, sub)
}

func (r *Renderer) Prompt() string {
	if !r.colorize {
		return "> "
	}
	return lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Render("❯ ")
}

// Markdown renders a finished-step line. Falls back to the raw string if
// glamour isn't available (e.g. construction failed for the terminal).
func (r *Renderer) Markdown(s string) string {
	if r.md == nil {
		return s
	}
	out, err := r.md.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

func (r *Renderer) Info(s string) string {
	if !r.colorize {
		return s
	}
	return color.New(color.FgHiBlack).Sprint(s)
}

func (r *Renderer) Error(s string) string {
	if !r.colorize {
		return "error: " + s
	}
	return color.New(color.FgRed, color.Bold).Sprintf("error: %s", s)
}

func (r *Renderer) Summary(summary string, success bool) string {
	icon := "✓"
	c := color.New(color.FgGreen)
	if !success {
		icon = "✗"
		c = color.New(color.FgRed)
	}
	if !r.colorize {
		return fmt.Sprintf("%s %s", icon, summary)
	}
	return c.Sprintf("%s %s", icon, summary)
}
