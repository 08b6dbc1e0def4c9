package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/tle"
)

// passSource is the part of *passes.Finder passcli needs.
type passSource interface {
	Find(ctx context.Context, key string, obs passes.Observer, horizon time.Duration, limit int) (passes.Result, error)
}

type report struct {
	def tle.Definition
	res passes.Result
	err error
}

// collect searches every satellite concurrently and returns the reports in the
// order of defs.
func collect(ctx context.Context, src passSource, defs []tle.Definition, obs passes.Observer, horizon time.Duration, limit, workers int) []report {
	reports := make([]report, len(defs))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, d := range defs {
		g.Go(func() error {
			res, err := src.Find(ctx, d.Key, obs, horizon, limit)
			reports[i] = report{def: d, res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	visibleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
)

var columns = []struct {
	title string
	width int
}{
	{"Rise", 20},
	{"Max", 10},
	{"Set", 10},
	{"Peak", 7},
	{"Az", 6},
	{"Dur", 7},
	{"Visibility", 0},
}

func cell(s string, width int) string {
	if width == 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func row(values []string, style lipgloss.Style) string {
	var b strings.Builder
	for i, v := range values {
		b.WriteString(cell(v, columns[i].width))
	}
	return style.Render(b.String())
}

// render writes one table per satellite.
func render(w io.Writer, obs passes.Observer, reports []report, loc *time.Location) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Passes over %.4f, %.4f (%.0f m), peak >= %.0f°",
		obs.LatDeg, obs.LonDeg, obs.ElevationM, obs.MinElevationDeg)))

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.title
	}

	for _, r := range reports {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%s)", r.def.Label, r.def.Key)))

		if r.err != nil {
			fmt.Fprintln(w, errorStyle.Render("  error: "+r.err.Error()))
			continue
		}
		if r.res.Warning != nil {
			fmt.Fprintln(w, warnStyle.Render("  warning: "+r.res.Warning.Error()))
		}
		if len(r.res.Passes) == 0 {
			fmt.Fprintln(w, dimStyle.Render("  no passes in window"))
			continue
		}

		fmt.Fprintln(w, "  "+row(headers, dimStyle))
		for _, p := range r.res.Passes {
			values := []string{
				p.Rise.In(loc).Format("2006-01-02 15:04:05"),
				p.Max.In(loc).Format("15:04:05"),
				p.Set.In(loc).Format("15:04:05"),
				fmt.Sprintf("%.1f°", p.MaxElevationDeg),
				fmt.Sprintf("%.0f°", p.MaxAzimuthDeg),
				formatDuration(p.Duration),
				p.Label,
			}
			style := lipgloss.NewStyle()
			if p.Visible {
				style = visibleStyle
			}
			fmt.Fprintln(w, "  "+row(values, style))
		}
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
