package settings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// readsTotal counts ReadSettings outcomes by scope and result
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_settings_reads_total",
		Help: "Total settings file reads by scope and result",
	}, []string{"scope", "result"})

	// writesTotal counts WriteSettings outcomes by scope and result
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_settings_writes_total",
		Help: "Total settings file writes by scope and result",
	}, []string{"scope", "result"})

	// ioRetriesTotal counts retries caused by locked or busy files
	ioRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celerix_settings_io_retries_total",
		Help: "Total settings file I/O retries by operation",
	}, []string{"op"})
)
