// Package report renders closed-loop traces to PNG figures.
package report

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/lumasim/internal/dynamo"
)

type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	DPI    int
}

func DefaultOptions() Options {
	return Options{
		Width:  10 * vg.Inch,
		Height: 11 * vg.Inch,
		DPI:    150,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	return o
}

// Run pairs a trace with the label it gets in comparisons.
type Run struct {
	Name  string
	Trace *dynamo.Trace
}

var saturatedColor = color.RGBA{R: 220, G: 50, B: 47, A: 255}

// Panels builds the stacked figure for one trace: regulated brightness
// against the set point, screen brightness, controller output with clipped
// steps marked, ambient light, and the control error.
func Panels(tr *dynamo.Trace, title string) ([]*plot.Plot, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("report: empty trace")
	}

	relative := make([]float64, tr.Len())
	for i := range relative {
		relative[i] = tr.Relative(i)
	}

	rel := newPanel(title, "relative brightness")
	if err := plotutil.AddLines(rel,
		"set point", xy(tr.Times, tr.Setpoint),
		"pv - light", xy(tr.Times, relative),
	); err != nil {
		return nil, err
	}

	pv := newPanel("", "screen brightness")
	if err := plotutil.AddLines(pv, "pv", xy(tr.Times, tr.ProcessValue)); err != nil {
		return nil, err
	}

	op := newPanel("", "output")
	if err := plotutil.AddLines(op,
		"op", xy(tr.Times, tr.ControlOutput),
		"applied", xy(tr.Times, tr.Applied),
	); err != nil {
		return nil, err
	}
	if err := addSaturation(op, tr); err != nil {
		return nil, err
	}

	light := newPanel("", "ambient light")
	if err := plotutil.AddLines(light, "disturbance", xy(tr.Times, tr.Disturbance)); err != nil {
		return nil, err
	}

	errPanel := newPanel("", "error")
	errPanel.X.Label.Text = "time (s)"
	if err := plotutil.AddLines(errPanel, "e", xy(tr.Times, tr.Error)); err != nil {
		return nil, err
	}
	errPanel.Add(plotter.NewGrid())

	return []*plot.Plot{rel, pv, op, light, errPanel}, nil
}

// Comparison overlays the regulated brightness of several runs on the set
// point of the first.
func Comparison(runs []Run, title string) ([]*plot.Plot, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("report: nothing to compare")
	}

	pv := newPanel(title, "pv - light")
	op := newPanel("", "output")
	op.X.Label.Text = "time (s)"

	first := runs[0].Trace
	if err := plotutil.AddLines(pv, "set point", xy(first.Times, first.Setpoint)); err != nil {
		return nil, err
	}

	for i, r := range runs {
		relative := make([]float64, r.Trace.Len())
		for k := range relative {
			relative[k] = r.Trace.Relative(k)
		}
		if err := addStyled(pv, r.Name, r.Trace.Times, relative, i+1); err != nil {
			return nil, err
		}
		if err := addStyled(op, r.Name, r.Trace.Times, r.Trace.ControlOutput, i+1); err != nil {
			return nil, err
		}
	}
	return []*plot.Plot{pv, op}, nil
}

// WritePNG stacks panels vertically into one image.
func WritePNG(w io.Writer, panels []*plot.Plot, opts Options) error {
	opts = opts.withDefaults()
	if len(panels) == 0 {
		return fmt.Errorf("report: no panels")
	}

	c := vgimg.NewWith(
		vgimg.UseWH(opts.Width, opts.Height),
		vgimg.UseDPI(opts.DPI),
	)
	dc := draw.New(c)

	rows := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		rows[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows: len(panels),
		Cols: 1,
		PadY: vg.Points(6),
		PadX: vg.Points(6),
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	bw := bufio.NewWriter(w)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// SavePNG renders the standard figure of tr to filename.
func SavePNG(filename string, tr *dynamo.Trace, opts Options) error {
	panels, err := Panels(tr, opts.Title)
	if err != nil {
		return err
	}
	return savePanels(filename, panels, opts)
}

func SaveComparisonPNG(filename string, runs []Run, opts Options) error {
	panels, err := Comparison(runs, opts.Title)
	if err != nil {
		return err
	}
	return savePanels(filename, panels, opts)
}

func savePanels(filename string, panels []*plot.Plot, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	if err := WritePNG(f, panels, opts); err != nil {
		return err
	}
	return f.Close()
}

func newPanel(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.X.Tick.Marker = limitedTicker(10, "%.0f")
	p.Y.Tick.Marker = limitedTicker(5, "%.2f")
	return p
}

func addStyled(p *plot.Plot, name string, xs, ys []float64, style int) error {
	if len(xs) != len(ys) || len(xs) == 0 {
		return fmt.Errorf("report: %s: plot data invalid", name)
	}
	line, err := plotter.NewLine(xy(xs, ys))
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(style)
	line.Dashes = plotutil.Dashes(style)
	line.Width = vg.Points(1.2)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func addSaturation(p *plot.Plot, tr *dynamo.Trace) error {
	var pts plotter.XYs
	for i := 0; i < tr.Len()-1; i++ {
		if tr.Saturated[i] {
			pts = append(pts, plotter.XY{X: tr.Times[i], Y: tr.ControlOutput[i]})
		}
	}
	if len(pts) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = saturatedColor
	sc.GlyphStyle.Radius = vg.Points(2)
	sc.GlyphStyle.Shape = draw.CrossGlyph{}
	p.Add(sc)
	p.Legend.Add("saturated", sc)
	return nil
}

func xy(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}
