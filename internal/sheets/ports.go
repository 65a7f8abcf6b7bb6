package sheets

import (
	"context"

	"fxrates/internal/core"
)

// Ports for the spreadsheet sink consumed by EPM users.
type (
	// SummaryPublisher writes one month of summaries to its own tab.
	SummaryPublisher interface {
		PublishMonth(ctx context.Context, report core.MonthReport) (tab string, err error)
	}

	// SummaryReader reads back what was last published for a month.
	SummaryReader interface {
		// ReadMonth returns the published rows, header included, or nil when
		// the month was never published.
		ReadMonth(ctx context.Context, ym core.YearMonth) ([][]string, error)
	}

	SummarySink interface {
		SummaryPublisher
		SummaryReader
	}
)
