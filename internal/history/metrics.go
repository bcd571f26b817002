package history

import "expvar"

var (
	metricSecondaryFailures = expvar.NewInt("history_secondary_failures_total")
	metricOutputDelivered   = expvar.NewInt("history_output_delivered_total")
	metricOutputRetries     = expvar.NewInt("history_output_retries_total")
	metricOutputDropped     = expvar.NewInt("history_output_dropped_total")
	metricOutputQueueLen    = expvar.NewInt("history_output_queue_len")
)
