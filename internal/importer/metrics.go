package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockroom",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Imported spreadsheet rows by outcome.",
	}, []string{"mode", "outcome"})

	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockroom",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Finished imports by terminal status.",
	}, []string{"mode", "status"})
)
