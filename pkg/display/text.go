package display

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/openshift/kpm-deployer/pkg/deploy"
	"github.com/openshift/kpm-deployer/pkg/payload"
)

var statusColors = map[string]text.Colors{
	"ok":        {text.FgGreen},
	"absent":    {text.FgGreen},
	"created":   {text.FgYellow},
	"updated":   {text.FgYellow},
	"replaced":  {text.FgYellow},
	"deleted":   {text.FgYellow},
	"protected": {text.FgBlue},
}

// TextReporter prints the progress of a run as it happens, then a table of
// every result line.
type TextReporter struct {
	out    io.Writer
	colors bool
}

// NewTextReporter returns a reporter writing to out. Statuses are colored
// when colors is set.
func NewTextReporter(out io.Writer, colors bool) *TextReporter {
	return &TextReporter{out: out, colors: colors}
}

var _ deploy.Reporter = &TextReporter{}

func (r *TextReporter) colorize(status string) string {
	if !r.colors {
		return status
	}
	colors, ok := statusColors[status]
	if !ok {
		colors = text.Colors{text.FgRed}
	}
	return colors.Sprint(status)
}

func (r *TextReporter) Start(action deploy.Action, pkg payload.PackageInfo) {
	fmt.Fprintf(r.out, "%s %s\n", action, pkg.Name)
}

func (r *TextReporter) StartUnit(index int, unit *payload.DeployUnit) {
	fmt.Fprintf(r.out, "\n %02d - %s:\n", index, unit.Package)
}

func (r *TextReporter) Progress(line deploy.ResultLine) {
	fmt.Fprintf(r.out, " --> %s (%s): %s\n", line.Name, line.Kind, r.colorize(line.Status))
}

func (r *TextReporter) Finish(lines []deploy.ResultLine) {
	fmt.Fprintln(r.out)
	WriteTable(r.out, lines, r.colorize)
}

// WriteTable prints lines as a table. colorize may be nil.
func WriteTable(out io.Writer, lines []deploy.ResultLine, colorize func(string) string) {
	if colorize == nil {
		colorize = func(s string) string { return s }
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"package", "version", "kind", "name", "namespace", "status"})
	for _, line := range lines {
		t.AppendRow(table.Row{line.Package, line.Version, line.Kind, line.Name, line.Namespace, colorize(line.Status)})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	t.Render()
}
