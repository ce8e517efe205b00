package observability

// Metric name prefixes
const (
	MetricPrefix = "trustbit"
)

// Metric names
const (
	// Bot lifecycle metrics
	BotsCreatedTotal = MetricPrefix + ".bots.created_total"
	BotsExpiredTotal = MetricPrefix + ".bots.expired_total"
	BotsActive       = MetricPrefix + ".bots.active"

	// Wallet metrics
	TransactionsTotal = MetricPrefix + ".wallet.transactions_total"

	// Sweep metrics
	SweepDuration = MetricPrefix + ".sweep.duration"

	// Supervisor metrics
	SupervisorFailuresTotal = MetricPrefix + ".supervisor.failures_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelPlan      = "plan"
	LabelOperation = "operation"
	LabelErrorType = "error_type"
)
