// Package memory is a SummarySink that keeps published tabs in process.
package memory

import (
	"context"
	"sync"

	"fxrates/internal/core"
	"fxrates/internal/sheets"
)

type Store struct {
	mu        sync.Mutex
	sheetName string
	tabs      map[string][][]string
	writes    int
}

var _ sheets.SummarySink = (*Store)(nil)

func New(sheetName string) *Store {
	return &Store{sheetName: sheetName, tabs: make(map[string][][]string)}
}

func (s *Store) PublishMonth(_ context.Context, report core.MonthReport) (string, error) {
	tab := sheets.TabName(s.sheetName, report.YearMonth)
	rows := sheets.Rows(report)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = rows
	s.writes++
	return tab, nil
}

func (s *Store) ReadMonth(_ context.Context, ym core.YearMonth) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[sheets.TabName(s.sheetName, ym)]
	if !ok {
		return nil, nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

// Writes returns how many PublishMonth calls were stored.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Tabs lists the published tab names.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for k := range s.tabs {
		out = append(out, k)
	}
	return out
}
