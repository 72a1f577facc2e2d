package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

const bannerWidth = 60

// Printer writes operator progress to a terminal.
type Printer struct {
	out  io.Writer
	step *color.Color
	ok   *color.Color
	warn *color.Color
	fail *color.Color
	bold *color.Color
}

func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:  out,
		step: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
		bold: color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.step, p.ok, p.warn, p.fail, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Step(format string, args ...any) { p.line(p.step, "▶", format, args...) }
func (p *Printer) OK(format string, args ...any)   { p.line(p.ok, "✅", format, args...) }
func (p *Printer) Warn(format string, args ...any) { p.line(p.warn, "⚠️ ", format, args...) }
func (p *Printer) Fail(format string, args ...any) { p.line(p.fail, "❌", format, args...) }

func (p *Printer) line(c *color.Color, glyph, format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", glyph, c.Sprintf(format, args...))
}

// Users prints the resolved id of every bound user.
func (p *Printer) Users(users []entity.Resolution) {
	p.Banner("RM USER IDs FOR TESTING")
	table := uitable.New()
	table.Separator = " | "
	for _, u := range users {
		table.AddRow(u.Username, u.ID)
	}
	_, _ = fmt.Fprintf(p.out, "%s\n\n", table)
}

// Summary prints the per-assignee application counts.
func (p *Printer) Summary(rows []entity.SummaryRow) {
	_, _ = fmt.Fprintln(p.out, p.bold.Sprint("📊 Assignment Summary:"))
	table := uitable.New()
	table.Separator = " | "
	table.RightAlign(1)
	table.AddRow("ASSIGNED TO", "COUNT")
	for _, r := range rows {
		table.AddRow(r.Label, r.Count)
	}
	_, _ = fmt.Fprintf(p.out, "%s\n", table)
}

func (p *Printer) Banner(title string) {
	rule := strings.Repeat("=", bannerWidth)
	_, _ = fmt.Fprintf(p.out, "\n%s\n%s\n%s\n\n", rule, p.bold.Sprint(title), rule)
}

// Complete prints the closing banner with what each RM should now see.
func (p *Printer) Complete(report *entity.Report) {
	if report.DryRun {
		p.Banner("✅ DRY RUN COMPLETE (no changes made)")
		return
	}
	p.Banner("✅ SETUP COMPLETE!")
	_, _ = fmt.Fprintln(p.out, "🧪 Test Data Isolation:")
	_, _ = fmt.Fprintln(p.out)
	for i, b := range report.Batches {
		if b.Outcome == entity.OutcomeFailed {
			_, _ = fmt.Fprintf(p.out, "%d. Login as %s → assignment failed, see warnings\n", i+1, b.Username)
			continue
		}
		_, _ = fmt.Fprintf(p.out, "%d. Login as %s → Should see %d applications only\n", i+1, b.Username, b.Assigned())
	}
	if len(report.Warnings) > 0 {
		_, _ = fmt.Fprintln(p.out)
		p.Warn("%d warning(s) during this run", len(report.Warnings))
	}
	_, _ = fmt.Fprintln(p.out)
}
