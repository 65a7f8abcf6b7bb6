// Package http serves the FX dashboard, its HTMX partials and the exports.
//
// This file implements parsing of the dashboard selection (months, base
// currency, currencies) and of form or JSON request bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"fxrates/internal/core"
)

const (
	// maxRangeMonths bounds a from/to selection.
	maxRangeMonths = 60
	// maxBodyBytes bounds form and JSON bodies.
	maxBodyBytes = 64 << 10
)

var ErrRangeTooLong = fmt.Errorf("month range longer than %d months", maxRangeMonths)

// Selection is what the dashboard and exports summarize.
type Selection struct {
	From         core.YearMonth
	To           core.YearMonth
	BaseCurrency string
	Currencies   []string
	// Custom is set when the request named its currencies instead of using
	// the application set.
	Custom bool
}

// Single reports whether the selection covers one month.
func (s Selection) Single() bool {
	return s.From == s.To
}

// Key identifies the selection in the summary cache.
func (s Selection) Key() string {
	return s.From.String() + ":" + s.To.String() + ":" + s.BaseCurrency + ":" + strings.Join(s.Currencies, ",")
}

// Query renders the selection back into URL parameters for links and
// hx-get attributes.
func (s Selection) Query() string {
	v := url.Values{}
	if s.Single() {
		v.Set("month", s.From.String())
	} else {
		v.Set("from", s.From.String())
		v.Set("to", s.To.String())
	}
	v.Set("base", s.BaseCurrency)
	if s.Custom {
		v.Set("currencies", strings.Join(s.Currencies, ","))
	}
	return v.Encode()
}

// Months lists every month of the selection.
func (s Selection) Months() []core.YearMonth {
	return core.MonthsBetween(s.From, s.To)
}

// RateConfig turns the selection into the pipeline configuration.
func (s Selection) RateConfig(opts Options) core.RateConfig {
	return core.RateConfig{
		BaseCurrency: s.BaseCurrency,
		Currencies:   s.Currencies,
		CoverageFrom: opts.CoverageFrom,
		CoverageTo:   opts.CoverageTo,
	}
}

// SelectionDefaults supplies the values a request may omit.
type SelectionDefaults struct {
	Month        core.YearMonth
	BaseCurrency string
	Currencies   []string
}

// ParseSelection reads month or from/to, base and currencies from query.
// Currencies may be repeated or comma separated. The base currency is
// dropped from the currency list since it always quotes 1.
func ParseSelection(query url.Values, def SelectionDefaults) (Selection, error) {
	sel := Selection{From: def.Month, To: def.Month}

	if v := strings.TrimSpace(query.Get("month")); v != "" {
		ym, err := core.ParseYearMonth(v)
		if err != nil {
			return Selection{}, err
		}
		sel.From, sel.To = ym, ym
	} else {
		if v := strings.TrimSpace(query.Get("from")); v != "" {
			ym, err := core.ParseYearMonth(v)
			if err != nil {
				return Selection{}, err
			}
			sel.From = ym
			if sel.To.Before(ym) {
				sel.To = ym
			}
		}
		if v := strings.TrimSpace(query.Get("to")); v != "" {
			ym, err := core.ParseYearMonth(v)
			if err != nil {
				return Selection{}, err
			}
			sel.To = ym
		}
	}
	if sel.To.Before(sel.From) {
		return Selection{}, fmt.Errorf("%w: %s after %s", core.ErrInvalidMonth, sel.From, sel.To)
	}
	if len(core.MonthsBetween(sel.From, sel.To)) > maxRangeMonths {
		return Selection{}, ErrRangeTooLong
	}

	base := strings.TrimSpace(query.Get("base"))
	if base == "" {
		base = def.BaseCurrency
	}
	norm, err := core.NormalizeCurrency(base)
	if err != nil {
		return Selection{}, fmt.Errorf("base currency: %w", err)
	}
	sel.BaseCurrency = norm

	codes := splitList(query["currencies"])
	if len(codes) > 0 {
		sel.Custom = true
	} else {
		codes = def.Currencies
	}
	for _, code := range codes {
		norm, err := core.NormalizeCurrency(code)
		if err != nil {
			return Selection{}, err
		}
		if norm == sel.BaseCurrency || slices.Contains(sel.Currencies, norm) {
			continue
		}
		sel.Currencies = append(sel.Currencies, norm)
	}
	if len(sel.Currencies) == 0 {
		return Selection{}, core.ErrEmptySelection
	}
	return sel, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// isSelectionError reports errors caused by bad query parameters.
func isSelectionError(err error) bool {
	return errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidCurrency) ||
		errors.Is(err, core.ErrEmptySelection) ||
		errors.Is(err, ErrRangeTooLong)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
