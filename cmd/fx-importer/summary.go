package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fxrates/internal/core"
	"fxrates/internal/services"
	"fxrates/internal/storage"
)

const recentRuns = 5

type analysisStore interface {
	storage.StatsReader
	storage.ImportJournal
}

// writeSummary prints what the store holds: totals, per-currency coverage,
// monthly coverage, configured currencies without data and recent runs.
func writeSummary(ctx context.Context, out io.Writer, store analysisStore, currencies *services.CurrencyService) error {
	p := message.NewPrinter(language.BritishEnglish)

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	p.Fprintf(out, "Records:      %d\n", stats.TotalRecords)
	p.Fprintf(out, "Dates:        %d\n", stats.UniqueDates)
	p.Fprintf(out, "Currencies:   %d\n", stats.Currencies)
	if stats.TotalRecords > 0 {
		fmt.Fprintf(out, "Range:        %s to %s\n", core.FormatDate(stats.FirstDate), core.FormatDate(stats.LastDate))
	}

	coverage, err := store.CurrencyCoverage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nCurrency coverage")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tPOINTS\tFIRST\tLAST\tMIN\tMAX\tAVG")
	for _, c := range coverage {
		p.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			c.CurrencyCode, c.DataPoints,
			core.FormatDate(c.FirstDate), core.FormatDate(c.LastDate),
			core.FormatRate(c.MinRate), core.FormatRate(c.MaxRate), core.FormatRate(c.AvgRate))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	months, err := store.MonthlyCoverage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nMonthly coverage")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tRECORDS\tTRADING DAYS\tCURRENCIES")
	for _, m := range months {
		p.Fprintf(tw, "%s\t%d\t%d\t%d\n", m.YearMonth.String(), m.Records, m.TradingDays, m.Currencies)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	missing, err := currencies.Missing(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "\nConfigured without data: %v\n", missing)
	}

	runs, err := store.RecentImportRuns(ctx, recentRuns)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Fprintln(out, "\nRecent imports")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tINSERTED\tUPDATED\tSKIPPED\tFILTERED\tSOURCE")
		for _, r := range runs {
			p.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Format("2006-01-02 15:04"), r.Inserted, r.Updated, r.Skipped, r.Filtered, r.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
