package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printer writes user-facing CLI output. Results go to out, problems to
// errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer

	success *color.Color
	warning *color.Color
	failure *color.Color
	label   *color.Color
}

func newPrinter(out, errOut io.Writer) *printer {
	return &printer{
		out:     out,
		errOut:  errOut,
		success: color.New(color.FgGreen, color.Bold),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		label:   color.New(color.FgCyan),
	}
}

func (p *printer) Success(format string, args ...any) {
	p.success.Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) Warning(format string, args ...any) {
	p.warning.Fprintf(p.errOut, "! "+format+"\n", args...)
}

func (p *printer) Failure(err error) {
	p.failure.Fprintf(p.errOut, "✗ %v\n", err)
}

func (p *printer) Error(err error) {
	p.failure.Fprintf(p.errOut, "Error: %v\n", err)
}

// Field prints an aligned "label: value" line.
func (p *printer) Field(label string, value any) {
	p.label.Fprintf(p.out, "%-20s", label+":")
	fmt.Fprintf(p.out, " %v\n", value)
}

func (p *printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
