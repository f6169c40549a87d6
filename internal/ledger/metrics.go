package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gl_batches_opened_total",
		Help: "GL batches opened",
	}, []string{"branch", "voucher_type"})

	linesPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gl_batch_lines_posted_total",
		Help: "GL batch lines written",
	}, []string{"branch"})

	// PostingDuration is observed by the workflow services around each
	// posting transaction.
	PostingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posting_duration_seconds",
		Help:    "Posting workflow latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"workflow"})

	// PostingsTotal is incremented by the workflow services per outcome.
	PostingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postings_total",
		Help: "Posting workflow invocations",
	}, []string{"workflow", "status"})
)
