package types

type RunMode string

const (
	// ModeLocal runs the API server and the in-process scheduler together
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeWorker runs the Temporal worker that executes generation workflows
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SchedulerBackend selects what triggers periodic recurring bill generation
type SchedulerBackend string

const (
	SchedulerBackendNone     SchedulerBackend = "none"
	SchedulerBackendCron     SchedulerBackend = "cron"
	SchedulerBackendTemporal SchedulerBackend = "temporal"
)
