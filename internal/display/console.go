// Package display renders an actor's performance on the console and
// records bus events to the log.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/qaznotquaz/aLexA/internal/envelope"
)

// Console writes speech and messages with each actor's name in its color.
// It is safe for concurrent use.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	self     string
	renderer *lipgloss.Renderer
	names    map[string]lipgloss.Style
	muted    lipgloss.Style
	width    int
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithWidth wraps line text at n columns. Zero disables wrapping.
func WithWidth(n int) ConsoleOption {
	return func(c *Console) {
		c.width = n
	}
}

// NewConsole creates a console for self. cast supplies the colors; the
// color profile is detected from w, so plain writers get plain text.
func NewConsole(w io.Writer, self string, cast []envelope.Identity, opts ...ConsoleOption) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{
		w:        w,
		self:     self,
		renderer: r,
		names:    make(map[string]lipgloss.Style, len(cast)),
		muted:    r.NewStyle().Foreground(MutedColor),
	}
	for _, id := range cast {
		c.names[id.Name] = nameStyle(r, id.Color)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocalSpeech shows a monologue line spoken by this actor.
func (c *Console) LocalSpeech(text string) {
	c.printf("%s%s %s\n", c.name(c.self), c.muted.Render(":"), c.body(text))
}

// OutgoingMessage shows a conversation line this actor sent to toName.
func (c *Console) OutgoingMessage(toName, text string) {
	c.printf("%s %s %s%s %s\n",
		c.name(c.self), c.muted.Render(arrowOut), c.name(toName), c.muted.Render(":"), c.body(text))
}

// IncomingMessage shows a conversation line received from fromName.
func (c *Console) IncomingMessage(fromName, text string) {
	c.printf("%s %s %s%s %s\n",
		c.name(c.self), c.muted.Render(arrowIn), c.name(fromName), c.muted.Render(":"), c.body(text))
}

func (c *Console) name(n string) string {
	style, ok := c.names[n]
	if !ok {
		style = nameStyle(c.renderer, "")
	}
	return style.Render(n)
}

func (c *Console) body(text string) string {
	if c.width <= 0 {
		return text
	}
	wrapped := c.renderer.NewStyle().Width(c.width).Render(text)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, format, args...)
}

func nameStyle(r *lipgloss.Renderer, color string) lipgloss.Style {
	fg := DefaultColor
	if color != "" {
		fg = lipgloss.Color(color)
	}
	return r.NewStyle().Bold(true).Foreground(fg)
}

// RenderCast returns one line per cast member, "name  port  color", with
// the name in its color.
func RenderCast(w io.Writer, cast []envelope.Identity) string {
	r := lipgloss.NewRenderer(w)
	width := 0
	for _, id := range cast {
		width = max(width, lipgloss.Width(id.Name))
	}

	var out string
	for _, id := range cast {
		name := nameStyle(r, id.Color).Width(width).Render(id.Name)
		color := id.Color
		if color == "" {
			color = "-"
		}
		out += fmt.Sprintf("%s  %5d  %s\n", name, id.Port, r.NewStyle().Foreground(MutedColor).Render(color))
	}
	return out
}
