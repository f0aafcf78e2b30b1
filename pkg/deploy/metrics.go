package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
)

const failedStatus = "failed"

var (
	resourceOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kpm_resource_operations_total",
		Help: "Resources submitted to the cluster by action and reported status.",
	}, []string{"action", "status"})

	resourceOperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kpm_resource_operation_errors_total",
		Help: "Resources the cluster client failed to submit, by action.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(
		resourceOperations,
		resourceOperationErrors,
	)
}
