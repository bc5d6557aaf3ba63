package domain

// ActionStatus represents the lifecycle state of an action during a run.
type ActionStatus string

const (
	// ActionStatusPending indicates the action is waiting for its dependencies.
	ActionStatusPending ActionStatus = "pending"
	// ActionStatusRunning indicates the action is being checked or executed.
	ActionStatusRunning ActionStatus = "running"
	// ActionStatusCompleted indicates the action ran and its stamp was committed.
	ActionStatusCompleted ActionStatus = "completed"
	// ActionStatusFailed indicates the check or the command failed.
	ActionStatusFailed ActionStatus = "failed"
	// ActionStatusCached indicates the action was skipped because its stamp was fresh.
	ActionStatusCached ActionStatus = "cached"
	// ActionStatusBlocked indicates a dependency failed so the action never started.
	ActionStatusBlocked ActionStatus = "blocked"
)

// IsTerminal checks if a status is a terminal state.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionStatusCompleted, ActionStatusFailed, ActionStatusCached, ActionStatusBlocked:
		return true
	default:
		return false
	}
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
