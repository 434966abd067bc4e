package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/lumasim/internal/dynamo"
)

// window returns up to width samples of vals ending at head inclusive.
func window(vals []float64, head, width int) []float64 {
	if head >= len(vals) {
		head = len(vals) - 1
	}
	start := head - width + 1
	if start < 0 {
		start = 0
	}
	w := vals[start : head+1]
	if len(w) == 1 {
		return []float64{w[0], w[0]}
	}
	return w
}

func relative(tr *dynamo.Trace) []float64 {
	out := make([]float64, tr.Len())
	for i := range out {
		out[i] = tr.Relative(i)
	}
	return out
}

// TrackingChart plots the set point (red) against the regulated brightness
// (green) over samples [head-span+1, head].
func TrackingChart(tr *dynamo.Trace, head, span, width, height int) string {
	return asciigraph.PlotMany(
		[][]float64{window(tr.Setpoint, head, span), window(relative(tr), head, span)},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
		asciigraph.Caption("set point / pv - light"),
	)
}

// OutputChart plots the controller output on its fixed bounds.
func OutputChart(tr *dynamo.Trace, head, span, width, height int, lo, hi float64) string {
	return asciigraph.Plot(
		window(tr.ControlOutput, head, span),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(lo),
		asciigraph.UpperBound(hi),
		asciigraph.Caption("op"),
	)
}

// RenderASCII draws a whole run for non-interactive terminals.
func RenderASCII(tr *dynamo.Trace, title string, width, height int) string {
	last := tr.Len() - 1
	lo, hi := outputRange(tr)
	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s\n",
		title,
		TrackingChart(tr, last, tr.Len(), width, height),
		OutputChart(tr, last, tr.Len(), width, max(height/2, 2), lo, hi),
		asciigraph.Plot(tr.Disturbance, asciigraph.Height(max(height/3, 2)), asciigraph.Width(width), asciigraph.Caption("ambient light")),
	)
}

func outputRange(tr *dynamo.Trace) (float64, float64) {
	lo, hi := tr.ControlOutput[0], tr.ControlOutput[0]
	for _, v := range tr.ControlOutput {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
