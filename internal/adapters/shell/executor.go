// Package shell provides the shell executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Execute runs the action's command.
// The environment is os.Environ() overridden by action.Environment.
// Output is copied to stdout/stderr and, line by line, to the logger.
func (e *Executor) Execute(ctx context.Context, action *domain.Action, stdout, stderr io.Writer) error {
	if len(action.Command) == 0 {
		return nil
	}

	name := action.Command[0]
	args := action.Command[1:]

	cmdEnv := resolveEnvironment(os.Environ(), action.Environment)

	// Resolve the executable using the command's own PATH
	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command

	// Keep the name as invoked in Args[0]
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}

	if action.WorkingDir != "" {
		cmd.Dir = action.WorkingDir
	}
	cmd.Env = cmdEnv

	outLog := &logWriter{logger: e.logger, action: action.Name, stderr: false}
	errLog := &logWriter{logger: e.logger, action: action.Name, stderr: true}
	cmd.Stdout = io.MultiWriter(stdout, outLog)
	cmd.Stderr = io.MultiWriter(stderr, errLog)

	err := cmd.Run()
	outLog.Flush()
	errLog.Flush()

	if err != nil {
		exitCode := -1 // Unknown or signal
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		return errors.Join(
			domain.ErrActionExecutionFailed,
			zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "action", action.Name),
		)
	}

	return nil
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// logWriter forwards complete lines of command output to the logger.
type logWriter struct {
	logger ports.Logger
	action string
	stderr bool

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logWriter) emit(line string) {
	line = ansiEscape.ReplaceAllString(strings.TrimSuffix(line, "\r"), "")
	if w.stderr {
		w.logger.Warn(line, "action", w.action)
		return
	}
	w.logger.Info(line, "action", w.action)
}

// resolveEnvironment merges the system environment with action overrides.
func resolveEnvironment(sysEnv []string, actionEnv map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(actionEnv))
	order := make([]string, 0, len(sysEnv)+len(actionEnv))

	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, exists := envMap[k]; !exists {
			order = append(order, k)
		}
		envMap[k] = v
	}

	for k, v := range actionEnv {
		if _, exists := envMap[k]; !exists {
			order = append(order, k)
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
