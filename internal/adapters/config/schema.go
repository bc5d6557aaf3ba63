package config

// Stampfile represents the structure of the stamp.yaml configuration file.
type Stampfile struct {
	Version string                `yaml:"version"`
	Actions map[string]*ActionDTO `yaml:"actions"`
}

// ActionDTO represents a guarded action definition in the configuration.
type ActionDTO struct {
	Files       []string          `yaml:"files"`
	Dirs        []string          `yaml:"dirs"`
	Extra       []string          `yaml:"extra"`
	Ignore      []string          `yaml:"ignore"`
	Outputs     []string          `yaml:"outputs"`
	Stamp       string            `yaml:"stamp"`
	Cmd         []string          `yaml:"cmd"`
	Environment map[string]string `yaml:"environment"`
	WorkingDir  string            `yaml:"workingDir"`
	DependsOn   []string          `yaml:"dependsOn"`
}
