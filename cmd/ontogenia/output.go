package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printer writes command results to stdout, colored only on a terminal.
type printer struct {
	w       io.Writer
	colored bool

	ok   *color.Color
	warn *color.Color
	fail *color.Color
	head *color.Color
	dim  *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	colored := false
	if f, ok := w.(*os.File); ok && !noColor {
		colored = isatty.IsTerminal(f.Fd())
	}

	p := &printer{
		w:       w,
		colored: colored,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		head:    color.New(color.FgCyan, color.Bold),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.head, p.dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Success prints a green check line.
func (p *printer) Success(format string, a ...any) {
	fmt.Fprintln(p.w, p.ok.Sprint("✓ ")+fmt.Sprintf(format, a...))
}

// Warning prints a yellow line.
func (p *printer) Warning(format string, a ...any) {
	fmt.Fprintln(p.w, p.warn.Sprint("! ")+fmt.Sprintf(format, a...))
}

// Failure prints a red cross line.
func (p *printer) Failure(format string, a ...any) {
	fmt.Fprintln(p.w, p.fail.Sprint("✗ ")+fmt.Sprintf(format, a...))
}

// Heading prints a section title.
func (p *printer) Heading(title string) {
	fmt.Fprintln(p.w, p.head.Sprint(title))
}

// Field prints an aligned "label: value" line.
func (p *printer) Field(label string, value any) {
	fmt.Fprintf(p.w, "  %s %v\n", p.dim.Sprintf("%-14s", label+":"), value)
}

// Markdown renders md with glamour, using the plain style off a terminal.
// The raw text is printed when rendering fails.
func (p *printer) Markdown(md string) {
	style := glamour.WithStandardStyle("notty")
	if p.colored {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprint(p.w, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(p.w, md)
		return
	}
	fmt.Fprint(p.w, out)
}
