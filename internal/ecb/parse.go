// Package ecb reads ECB euro foreign exchange reference rates.
//
// Two layouts are accepted: the published historical file, one row per date
// with one column per currency ("Date,USD,JPY,..." with "N/A" gaps and a
// trailing comma), and a long layout "date,currency_code,eur_rate".
package ecb

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"fxrates/internal/core"
)

var (
	ErrUnknownLayout = errors.New("unrecognized rate file layout")
	ErrNoCSVInZip    = errors.New("zip archive holds no csv file")
)

// ParseCSV reads rows in either layout. Cells are not validated here; the
// importer validates and counts malformed rows. Empty and "N/A" cells of the
// wide layout are quotes that were not published and produce no row.
func ParseCSV(r io.Reader) ([]core.ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := normalizeHeader(header)

	switch {
	case isLongLayout(cols):
		return parseLong(cr)
	case len(cols) > 1 && strings.EqualFold(cols[0], "date"):
		return parseWide(cr, cols)
	default:
		return nil, fmt.Errorf("%w: header %v", ErrUnknownLayout, cols)
	}
}

// ParseZip reads the first csv entry of a zip archive such as eurofxref-hist.zip.
func ParseZip(data []byte) ([]core.ImportRow, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		rows, err := ParseCSV(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		return rows, nil
	}
	return nil, ErrNoCSVInZip
}

// Parse detects a zip archive by its magic bytes and parses accordingly.
func Parse(data []byte) ([]core.ImportRow, error) {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return ParseZip(data)
	}
	return ParseCSV(bytes.NewReader(data))
}

func normalizeHeader(header []string) []string {
	cols := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols = append(cols, h)
	}
	// the historical file ends every line with a comma
	for len(cols) > 0 && cols[len(cols)-1] == "" {
		cols = cols[:len(cols)-1]
	}
	return cols
}

func isLongLayout(cols []string) bool {
	return len(cols) == 3 &&
		strings.EqualFold(cols[0], "date") &&
		strings.EqualFold(cols[1], "currency_code") &&
		strings.EqualFold(cols[2], "eur_rate")
}

func parseLong(cr *csv.Reader) ([]core.ImportRow, error) {
	var rows []core.ImportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// a broken line becomes a malformed row for the importer
				rows = append(rows, core.ImportRow{Line: perr.Line})
				continue
			}
			return nil, fmt.Errorf("read rates: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row := core.ImportRow{Line: line}
		if len(rec) > 0 {
			row.Date = rec[0]
		}
		if len(rec) > 1 {
			row.CurrencyCode = rec[1]
		}
		if len(rec) > 2 {
			row.EURRate = rec[2]
		}
		if row.Date == "" && row.CurrencyCode == "" && row.EURRate == "" {
			continue
		}
		rows = append(rows, row)
	}
}

func parseWide(cr *csv.Reader, cols []string) ([]core.ImportRow, error) {
	codes := cols[1:]
	var rows []core.ImportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rows = append(rows, core.ImportRow{Line: perr.Line})
				continue
			}
			return nil, fmt.Errorf("read rates: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		date := rec[0]
		for i, code := range codes {
			if i+1 >= len(rec) {
				break
			}
			cell := strings.TrimSpace(rec[i+1])
			if cell == "" || strings.EqualFold(cell, "N/A") {
				continue
			}
			rows = append(rows, core.ImportRow{Line: line, Date: date, CurrencyCode: code, EURRate: cell})
		}
	}
}
