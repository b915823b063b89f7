package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_uploads_total",
			Help: "Upload attempts by category and result.",
		},
		[]string{"category", "result"},
	)

	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_deletes_total",
			Help: "Delete attempts by result.",
		},
		[]string{"result"},
	)

	// rollbacksTotal counts compensating record deletes after a failed blob write.
	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_upload_rollbacks_total",
			Help: "Compensating record deletes by result.",
		},
		[]string{"result"},
	)
)
