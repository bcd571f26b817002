package spectatorgateway

import "expvar"

var (
	metricObserverStreamsOpened  = expvar.NewInt("observer_sse_streams_opened_total")
	metricObserverStreamsActive  = expvar.NewInt("observer_sse_streams_active")
	metricObserverStreamsEvicted = expvar.NewInt("observer_sse_streams_evicted_total")
	metricObserverReplayedEvents = expvar.NewInt("observer_sse_replayed_events_total")
)
