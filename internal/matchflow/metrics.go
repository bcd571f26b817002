package matchflow

import "expvar"

var (
	metricMatchesFinalized      = expvar.NewInt("matches_finalized_total")
	metricFinalizationsRejected = expvar.NewInt("match_finalizations_rejected_total")
	metricSinkFailures          = expvar.NewInt("match_sink_failures_total")
	metricGoalsRecorded         = expvar.NewInt("match_goals_recorded_total")
)
