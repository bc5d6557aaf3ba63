// Package config provides the configuration loader for stamp.
package config

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only stamp.yaml schema version understood by the loader.
const SupportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger   ports.Logger
	Resolver ports.InputResolver
}

// NewLoader creates a new Loader with the given logger and input resolver.
func NewLoader(logger ports.Logger, resolver ports.InputResolver) *Loader {
	return &Loader{Logger: logger, Resolver: resolver}
}

// Load reads the configuration file at path and returns a validated domain.Graph.
//
// Relative paths in the file are resolved against the directory holding it.
// The command line and environment of each action are appended to its extra
// strings so that changing either makes the action stale. Stamps that fall
// inside a declared directory are added to that action's ignore patterns.
func (l *Loader) Load(path string) (*domain.Graph, error) {
	var stampfile Stampfile
	if err := readAndUnmarshalYAML(path, &stampfile); err != nil {
		return nil, err
	}

	if stampfile.Version != "" && stampfile.Version != SupportedVersion {
		return nil, zerr.With(domain.ErrUnsupportedConfigVersion, "version", stampfile.Version)
	}
	if stampfile.Version == "" {
		l.Logger.Warn("config does not declare a version, assuming "+SupportedVersion, "path", path)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve config directory")
	}

	g := domain.NewGraph()
	stampOwners := make(map[string]string, len(stampfile.Actions))
	actions := make([]*domain.Action, 0, len(stampfile.Actions))

	// Sorted names keep duplicate-stamp errors stable.
	names := make([]string, 0, len(stampfile.Actions))
	for name := range stampfile.Actions {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := validateActionName(name); err != nil {
			return nil, err
		}

		dto := stampfile.Actions[name]
		if dto == nil {
			dto = &ActionDTO{}
		}

		for _, dep := range dto.DependsOn {
			if _, ok := stampfile.Actions[dep]; !ok {
				err := zerr.With(domain.ErrMissingDependency, "missing_dependency", dep)
				return nil, zerr.With(err, "action_name", name)
			}
		}

		action, err := l.buildAction(name, dto, root)
		if err != nil {
			return nil, zerr.With(err, "action_name", name)
		}

		if owner, taken := stampOwners[action.Stamp]; taken {
			err := zerr.With(domain.ErrDuplicateStamp, "stamp", action.Stamp)
			err = zerr.With(err, "first_owner", owner)
			return nil, zerr.With(err, "action_name", name)
		}
		stampOwners[action.Stamp] = name
		actions = append(actions, action)
	}

	stamps := slices.Sorted(maps.Keys(stampOwners))
	for _, action := range actions {
		action.Inputs.Ignore = appendStampIgnores(action.Inputs.Ignore, action.Inputs.Directories, stamps)
		if err := g.AddAction(action); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	l.Logger.Debug("loaded config", "path", path, "actions", g.ActionCount())
	return g, nil
}

func (l *Loader) buildAction(name string, dto *ActionDTO, root string) (*domain.Action, error) {
	files, err := l.Resolver.ResolveInputs(dto.Files, root)
	if err != nil {
		return nil, err
	}
	dirs, err := l.Resolver.ResolveInputs(dto.Dirs, root)
	if err != nil {
		return nil, err
	}

	inputs := domain.InputSpec{
		Files:        files,
		Directories:  dirs,
		ExtraStrings: slices.Clone(dto.Extra),
		Ignore:       slices.Clone(dto.Ignore),
	}
	inputs = inputs.WithExtraStrings(commandStrings(dto.Cmd, dto.Environment)...)
	if inputs.IsEmpty() {
		return nil, domain.ErrEmptyInputSpec
	}

	stamp := domain.DefaultStampPath(root, name)
	if dto.Stamp != "" {
		stamp = resolvePath(root, dto.Stamp)
	}

	outputs := make([]string, 0, len(dto.Outputs))
	for _, out := range dto.Outputs {
		outputs = append(outputs, resolvePath(root, out))
	}

	workingDir := root
	if dto.WorkingDir != "" {
		workingDir = resolvePath(root, dto.WorkingDir)
	}

	return &domain.Action{
		Name:         name,
		Inputs:       inputs,
		Stamp:        stamp,
		Outputs:      outputs,
		Command:      slices.Clone(dto.Cmd),
		Environment:  dto.Environment,
		WorkingDir:   workingDir,
		Dependencies: slices.Clone(dto.DependsOn),
	}, nil
}

// commandStrings renders the command and its sorted environment as digest inputs.
//
// Each argv element is its own string so moving an argument boundary changes
// the digest. Both sections open with a marker carrying their element count.
func commandStrings(cmd []string, env map[string]string) []string {
	if len(cmd) == 0 && len(env) == 0 {
		return nil
	}

	out := make([]string, 0, 2+len(cmd)+len(env))
	out = append(out, sectionMarker("cmd", len(cmd)))
	out = append(out, cmd...)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out = append(out, sectionMarker("env", len(keys)))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func sectionMarker(name string, n int) string {
	return "\x00" + name + ":" + strconv.Itoa(n)
}

// appendStampIgnores keeps stamps out of the directory trees that declare
// them, so committing a stamp does not change the digest it records. A stamp
// under a default stamp directory hides that whole directory; any other stamp
// hides its base name and the temporary files written next to it.
func appendStampIgnores(ignore, dirs, stamps []string) []string {
	add := func(pattern string) {
		if !slices.Contains(ignore, pattern) {
			ignore = append(ignore, pattern)
		}
	}

	for _, stamp := range stamps {
		if !slices.ContainsFunc(dirs, func(dir string) bool { return isWithin(dir, stamp) }) {
			continue
		}
		stampDir := filepath.Dir(stamp)
		if filepath.Base(stampDir) == domain.StampDirName &&
			slices.ContainsFunc(dirs, func(dir string) bool { return isWithin(dir, stampDir) }) {
			add(domain.StampDirName)
			continue
		}
		base := filepath.Base(stamp)
		add(base)
		add(base + ".tmp.*")
	}
	return ignore
}

// isWithin reports whether path lies strictly below dir.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is provided by the user
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Join(domain.ErrConfigReadFailed, zerr.With(zerr.Wrap(err, "read"), "path", configPath))
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return errors.Join(domain.ErrConfigParseFailed, zerr.With(zerr.Wrap(parseErr, "unmarshal"), "path", configPath))
	}

	return nil
}

// validateActionName checks if the action name is reserved.
func validateActionName(name string) error {
	if name == "all" {
		return zerr.With(domain.ErrReservedActionName, "action_name", name)
	}
	return nil
}
