// Package metrics exposes Prometheus counters for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_files_decoded_total",
		Help: "Uploaded files decoded, by format.",
	}, []string{"format"})

	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_decode_failures_total",
		Help: "Uploads rejected by the decoder, by reason.",
	}, []string{"reason"})

	RowsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_classified_total",
		Help: "Preview rows classified during validation, by status.",
	}, []string{"status"})

	DuplicatesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_duplicates_flagged_total",
		Help: "Candidate rows flagged as probable duplicates.",
	})

	RowsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_committed_total",
		Help: "Commit outcomes per row, by kind.",
	}, []string{"outcome"})
)
