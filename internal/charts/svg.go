// Package charts renders dashboard charts as inline SVG.
package charts

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 36.0
	DefaultTicks   = 5

	axisColor = "#475569"
	gridColor = "#cbd5e1"
)

var (
	ErrNoSeries         = errors.New("charts: at least one series required")
	ErrLabelMismatch    = errors.New("charts: series length must match labels")
	ErrViewportTooSmall = errors.New("charts: viewport too small")
)

// Series is one named set of values drawn in a single color.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// Opts customises a chart.
type Opts struct {
	Title       string
	Description string
	Width       int
	Height      int
	Padding     float64
	TickCount   int
	// Decimals of the tick labels; negative picks automatically.
	Decimals int
}

func (o Opts) withDefaults() Opts {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.TickCount <= 0 {
		o.TickCount = DefaultTicks
	}
	return o
}

type frame struct {
	opts          Opts
	left, top     float64
	width, height float64
	min, max      float64
}

func newFrame(opts Opts, series []Series) (frame, error) {
	opts = opts.withDefaults()
	f := frame{
		opts:   opts,
		left:   opts.Padding * 1.5,
		top:    opts.Padding,
		width:  float64(opts.Width) - opts.Padding*2.5,
		height: float64(opts.Height) - opts.Padding*2,
	}
	if f.width <= 0 || f.height <= 0 {
		return frame{}, ErrViewportTooSmall
	}
	first := true
	for _, s := range series {
		for _, v := range s.Values {
			if first {
				f.min, f.max = v, v
				first = false
				continue
			}
			f.min = math.Min(f.min, v)
			f.max = math.Max(f.max, v)
		}
	}
	return f, nil
}

func (f frame) y(v float64) float64 {
	return f.top + f.height - (v-f.min)/(f.max-f.min)*f.height
}

func (f frame) bottom() float64 { return f.top + f.height }

func (f frame) open(b *strings.Builder, kind string) {
	titleID := makeID(f.opts.Title, kind+"-title")
	descID := makeID(f.opts.Title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s" class="chart">`,
		f.opts.Width, f.opts.Height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(f.opts.Title, "Chart")))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(f.opts.Description))
}

func (f frame) grid(b *strings.Builder) {
	n := f.opts.TickCount
	for i := 0; i <= n; i++ {
		ratio := float64(i) / float64(n)
		v := f.min + (f.max-f.min)*ratio
		y := f.y(v)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`,
			f.left, y, f.left+f.width, y, gridColor)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			f.left-6, y+4, axisColor, formatTick(v, f.opts.Decimals, f.max-f.min))
	}
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"></line>`, f.left, f.top, f.left, f.bottom(), axisColor)
}

func (f frame) legend(b *strings.Builder, series []Series) {
	x := f.left
	for _, s := range series {
		if s.Label == "" {
			continue
		}
		fmt.Fprintf(b, `<rect x="%.2f" y="6" width="10" height="10" fill="%s"></rect>`, x, s.Color)
		fmt.Fprintf(b, `<text x="%.2f" y="15" fill="%s" font-size="11">%s</text>`, x+14, axisColor, template.HTMLEscapeString(s.Label))
		x += 24 + 7*float64(len(s.Label))
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

// formatTick picks enough decimals to tell neighbouring ticks apart.
func formatTick(v float64, decimals int, span float64) string {
	if decimals < 0 {
		switch {
		case span >= 50:
			decimals = 0
		case span >= 1:
			decimals = 2
		default:
			decimals = 4
		}
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}
