package charts

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped bar chart, one group per label. The value axis
// always includes zero so negative bars hang below the baseline.
func Bars(labels []string, series []Series, opts Opts) (template.HTML, error) {
	if len(series) == 0 {
		return "", ErrNoSeries
	}
	if len(labels) == 0 {
		return "", ErrLabelMismatch
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("%w: %q has %d values for %d labels", ErrLabelMismatch, s.Label, len(s.Values), len(labels))
		}
	}

	f, err := newFrame(opts, series)
	if err != nil {
		return "", err
	}
	f.min = math.Min(f.min, 0)
	f.max = math.Max(f.max, 0)
	if almostEqual(f.min, f.max) {
		f.max = f.min + 1
	}

	var b strings.Builder
	f.open(&b, "bar")
	f.grid(&b)

	zeroY := f.y(0)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"></line>`, f.left, zeroY, f.left+f.width, zeroY, axisColor)

	groupWidth := f.width / float64(len(labels))
	barWidth := groupWidth * 0.8 / float64(len(series))
	for i, label := range labels {
		groupX := f.left + float64(i)*groupWidth + groupWidth*0.1
		for j, s := range series {
			v := s.Values[i]
			top, h := f.y(v), zeroY-f.y(v)
			if v < 0 {
				top, h = zeroY, f.y(v)-zeroY
			}
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s %s: %s</title></rect>`,
				groupX+float64(j)*barWidth, top, barWidth, h, fallback(s.Color, palette(j)),
				template.HTMLEscapeString(label), template.HTMLEscapeString(s.Label), formatTick(v, 6, 0))
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			groupX+groupWidth*0.4, f.bottom()+14, axisColor, template.HTMLEscapeString(label))
	}
	f.legend(&b, withPalette(series))

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

var colors = []string{"#2563eb", "#f97316", "#16a34a", "#9333ea", "#dc2626", "#0891b2"}

func palette(i int) string { return colors[i%len(colors)] }

func withPalette(series []Series) []Series {
	out := make([]Series, len(series))
	for i, s := range series {
		s.Color = fallback(s.Color, palette(i))
		out[i] = s
	}
	return out
}
