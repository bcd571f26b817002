package httptransport

import "expvar"

var (
	metricClockCommandsTotal = expvar.NewInt("http_clock_commands_total")

	metricGoalSubmitTotal  = expvar.NewInt("http_goal_submit_total")
	metricGoalSubmitErrors = expvar.NewInt("http_goal_submit_errors_total")

	metricConfirmTotal  = expvar.NewInt("http_result_confirm_total")
	metricConfirmErrors = expvar.NewInt("http_result_confirm_errors_total")

	metricHistoryQueryTotal  = expvar.NewInt("http_history_query_total")
	metricHistoryQueryErrors = expvar.NewInt("http_history_query_errors_total")
)
