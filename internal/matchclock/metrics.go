package matchclock

import "expvar"

var (
	metricSessionsCreated  = expvar.NewInt("clock_sessions_created_total")
	metricSessionsActive   = expvar.NewInt("clock_sessions_active")
	metricTicks            = expvar.NewInt("clock_ticks_total")
	metricAlarms           = expvar.NewInt("clock_alarms_total")
	metricExpiries         = expvar.NewInt("clock_expiries_total")
	metricObserversDropped = expvar.NewInt("clock_observers_dropped_total")
)
