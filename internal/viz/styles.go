package viz

import (
	"math"
	"strings"
)

// ProgressBar renders a bar filled to percent in [0, 1].
func (s styles) ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if percent > 0.8 {
		return s.high.Render(bar)
	} else if percent > 0.4 {
		return s.mid.Render(bar)
	}
	return s.low.Render(bar)
}

// Sparkline renders the magnitude of values, one glyph per column. Small
// magnitudes are green.
func (s styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := math.Abs(values[i*step]) / peak
		idx := int(norm * float64(len(chars)-1))
		c := string(chars[idx])

		switch {
		case norm < 0.3:
			result.WriteString(s.high.Render(c))
		case norm < 0.7:
			result.WriteString(s.mid.Render(c))
		default:
			result.WriteString(s.low.Render(c))
		}
	}

	return result.String()
}
