package charts

import (
	"fmt"
	"html/template"
	"strings"
)

// Lines renders one polyline per series over shared x labels. The value axis
// is fitted to the data, which suits exchange rates that never approach zero.
func Lines(labels []string, series []Series, opts Opts) (template.HTML, error) {
	if len(series) == 0 {
		return "", ErrNoSeries
	}
	for _, s := range series {
		if len(s.Values) != len(labels) || len(labels) == 0 {
			return "", fmt.Errorf("%w: %q", ErrLabelMismatch, s.Label)
		}
	}

	f, err := newFrame(opts, series)
	if err != nil {
		return "", err
	}
	if almostEqual(f.min, f.max) {
		f.min -= 0.5
		f.max += 0.5
	} else {
		pad := (f.max - f.min) * 0.05
		f.min -= pad
		f.max += pad
	}

	x := func(i int) float64 {
		if len(labels) == 1 {
			return f.left + f.width/2
		}
		return f.left + float64(i)*f.width/float64(len(labels)-1)
	}

	var b strings.Builder
	f.open(&b, "line")
	f.grid(&b)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"></line>`, f.left, f.bottom(), f.left+f.width, f.bottom(), axisColor)

	series = withPalette(series)
	for _, s := range series {
		var path strings.Builder
		for i, v := range s.Values {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, x(i), f.y(v))
		}
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"><title>%s</title></path>`,
			strings.TrimSpace(path.String()), s.Color, template.HTMLEscapeString(s.Label))
	}

	// label every nth point so long daily series stay readable
	every := max(1, len(labels)/8)
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			x(i), f.bottom()+14, axisColor, template.HTMLEscapeString(label))
	}
	f.legend(&b, series)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
