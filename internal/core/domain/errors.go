package domain

import "go.trai.ch/zerr"

var (
	// ErrInputNotFound is returned when a declared file or directory does not exist at digest time.
	ErrInputNotFound = zerr.New("input not found")

	// ErrUnreadableInput is returned when a declared input exists but cannot be read.
	ErrUnreadableInput = zerr.New("input is not readable")

	// ErrStampReadFailed is returned when an existing stamp file cannot be read.
	ErrStampReadFailed = zerr.New("failed to read stamp")

	// ErrStampWriteFailed is returned when a stamp file cannot be written or renamed into place.
	ErrStampWriteFailed = zerr.New("failed to write stamp")

	// ErrStampRemoveFailed is returned when a stamp file cannot be deleted.
	ErrStampRemoveFailed = zerr.New("failed to remove stamp")

	// ErrActionAlreadyExists is returned when attempting to add an action with a name that already exists.
	ErrActionAlreadyExists = zerr.New("action already exists")

	// ErrMissingDependency is returned when an action references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the action dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrActionNotFound is returned when a requested action is not found in the graph.
	ErrActionNotFound = zerr.New("action not found")

	// ErrReservedActionName is returned when an action uses a reserved name.
	ErrReservedActionName = zerr.New("action name 'all' is reserved")

	// ErrDuplicateStamp is returned when two actions would write the same stamp file.
	ErrDuplicateStamp = zerr.New("stamp path is owned by more than one action")

	// ErrEmptyInputSpec is returned when an action declares no inputs at all.
	ErrEmptyInputSpec = zerr.New("action declares no inputs")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrUnsupportedConfigVersion is returned when the config declares an unknown schema version.
	ErrUnsupportedConfigVersion = zerr.New("unsupported config version")

	// ErrActionExecutionFailed is returned when a guarded action's command fails.
	ErrActionExecutionFailed = zerr.New("action execution failed")

	// ErrBuildExecutionFailed is returned when one or more actions of a run fail.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrStaleActions is returned by check when at least one action is stale.
	ErrStaleActions = zerr.New("actions are stale")

	// ErrOutputStatFailed is returned when a declared output cannot be inspected.
	ErrOutputStatFailed = zerr.New("failed to stat output")
)
