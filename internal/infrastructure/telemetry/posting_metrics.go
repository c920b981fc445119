package telemetry

import (
	"context"

	"github.com/hera/finance/internal/domain/posting"
	"go.uber.org/zap"
)

// PostingMetrics tracks terminal outcomes of the posting engine: how many
// events posted, staged, or were rejected, and the distribution of posted
// amounts. It implements posting.MetricsRecorder.
type PostingMetrics struct {
	logger *zap.Logger

	eventsTotal  *Counter
	amountPosted *Histogram
}

// NewPostingMetrics creates posting outcome instruments on the package meter
func NewPostingMetrics(logger *zap.Logger) (*PostingMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := Meter()

	pm := &PostingMetrics{logger: logger}

	var err error
	pm.eventsTotal, err = NewCounter(
		meter,
		"finance_events_processed_total",
		"Total number of finance events processed, by outcome status",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	pm.amountPosted, err = NewHistogram(meter, HistogramOpts{
		Name:        "finance_event_amount",
		Description: "Distribution of processed event amounts",
		Unit:        "{currency_units}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordOutcome records one terminal engine outcome
func (pm *PostingMetrics) RecordOutcome(ctx context.Context, status posting.Status, code posting.SmartCode, totalAmount float64) {
	pm.eventsTotal.Inc(ctx,
		AttrStatus.String(string(status)),
		AttrSmartCode.String(code.String()),
		AttrModule.String(code.Module()),
	)
	if totalAmount > 0 {
		pm.amountPosted.Record(ctx, totalAmount,
			AttrStatus.String(string(status)),
			AttrModule.String(code.Module()),
		)
	}
}
