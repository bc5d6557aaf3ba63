package domain

// Action is a named, stamp-guarded unit of work declared in the configuration.
type Action struct {
	Name   string
	Inputs InputSpec
	// Stamp is the file recording the digest of the last successful run.
	Stamp string
	// Outputs must all exist for the action to be considered fresh.
	Outputs      []string
	Command      []string
	Environment  map[string]string
	WorkingDir   string
	Dependencies []string
}
