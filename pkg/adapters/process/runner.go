package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
)

var (
	// ErrInvalidScriptName is returned for names that could escape the script directory.
	ErrInvalidScriptName = errors.New("invalid script name")
	// ErrScriptNotFound is returned when the script file does not exist or is not registered.
	ErrScriptNotFound = errors.New("script not found")
)

const scriptPlaceholder = "{script}"

// Runner executes bundled helper scripts, optionally with elevated privileges.
// When scripts are registered only those names may run (allow-listing).
type Runner struct {
	dir      string
	sudo     LauncherConfig
	apple    LauncherConfig
	registry map[string]ScriptConfig
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithDir sets the directory scripts are resolved in.
func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithSudoLauncher replaces the privilege elevation command.
func WithSudoLauncher(command string, args ...string) RunnerOption {
	return func(r *Runner) {
		r.sudo = LauncherConfig{Command: command, Args: args}
	}
}

// WithAppleLauncher replaces the AppleScript interpreter.
func WithAppleLauncher(command string, args ...string) RunnerOption {
	return func(r *Runner) {
		r.apple = LauncherConfig{Command: command, Args: args}
	}
}

// WithConfig applies a loaded scripts configuration.
func WithConfig(cfg ConfigFile) RunnerOption {
	return func(r *Runner) {
		if cfg.Dir != "" {
			r.dir = cfg.Dir
		}
		if cfg.Sudo != nil && cfg.Sudo.Command != "" {
			r.sudo = *cfg.Sudo
		}
		if cfg.Apple != nil && cfg.Apple.Command != "" {
			r.apple = *cfg.Apple
		}
		for _, s := range cfg.Scripts {
			r.Register(s)
		}
	}
}

// WithLogger configures a logger for the Runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// DefaultSudoLauncher returns the platform's graphical elevation command.
func DefaultSudoLauncher() LauncherConfig {
	if runtime.GOOS == "darwin" {
		return LauncherConfig{
			Command: "osascript",
			Args:    []string{"-e", `do shell script "/bin/sh '` + scriptPlaceholder + `'" with administrator privileges`},
		}
	}
	return LauncherConfig{Command: "pkexec", Args: []string{"/bin/sh"}}
}

// NewRunner creates a new script Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		dir:      "scripts",
		sudo:     DefaultSudoLauncher(),
		apple:    LauncherConfig{Command: "osascript"},
		registry: make(map[string]ScriptConfig),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a script to the allow-list.
func (r *Runner) Register(script ScriptConfig) {
	if script.Name == "" {
		return
	}
	r.registry[script.Name] = script
}

// Scripts returns the registered scripts.
func (r *Runner) Scripts() []ScriptConfig {
	out := make([]ScriptConfig, 0, len(r.registry))
	for _, s := range r.registry {
		out = append(out, s)
	}
	return out
}

// Sudo launches <dir>/<name>.sh with elevated privileges and returns at once.
// started is called after a successful launch; finished reports whether the
// script exited with status 0. A launch failure calls finished(false) only.
func (r *Runner) Sudo(ctx context.Context, name string, started func(), finished func(bool)) {
	if finished == nil {
		finished = func(bool) {}
	}

	cmd, stderr, err := r.command(ctx, r.sudo, name, ".sh")
	if err != nil {
		r.logger.Error("Refusing to run script", "script", name, "err", err)
		finished(false)
		return
	}
	if err := cmd.Start(); err != nil {
		r.logger.Error("Privileged launch failed", "script", name, "err", err)
		finished(false)
		return
	}
	if started != nil {
		started()
	}

	go func() {
		err := waitError(name, cmd.Wait(), stderr)
		if err != nil {
			r.logger.Warn("Privileged script failed", "script", name, "err", err)
		}
		finished(err == nil)
	}()
}

// Run is the blocking form of Sudo.
func (r *Runner) Run(ctx context.Context, name string) error {
	cmd, stderr, err := r.command(ctx, r.sudo, name, ".sh")
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPrivilegedExecutionDenied, name, err)
	}
	return waitError(name, cmd.Wait(), stderr)
}

// pkexec exits 126 when the authorization dialog is dismissed and 127 when
// authorization fails.
const (
	exitAuthDismissed = 126
	exitAuthFailed    = 127
)

// waitError classifies the result of waiting on a privileged launch.
func waitError(name string, err error, stderr *bytes.Buffer) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code == exitAuthDismissed || code == exitAuthFailed {
			return fmt.Errorf("%w: %s: %w", domain.ErrPrivilegedExecutionDenied, name, err)
		}
	}
	return fmt.Errorf("%w: %s: %w. Stderr: %s", domain.ErrScriptExecutionFailed, name, err, strings.TrimSpace(stderr.String()))
}

// Apple runs <dir>/<name>.scpt and waits for it. The script's result is discarded.
func (r *Runner) Apple(ctx context.Context, name string) error {
	cmd, stderr, err := r.command(ctx, r.apple, name, ".scpt")
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w. Stderr: %s", domain.ErrScriptExecutionFailed, name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// resolve maps a script name to its absolute path.
func (r *Runner) resolve(name, ext string) (string, ScriptConfig, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ScriptConfig{}, fmt.Errorf("%w: %q", ErrInvalidScriptName, name)
	}
	script, registered := r.registry[name]
	if len(r.registry) > 0 && !registered {
		return "", ScriptConfig{}, fmt.Errorf("%w: %q is not registered", ErrScriptNotFound, name)
	}

	path, err := filepath.Abs(filepath.Join(r.dir, name+ext))
	if err != nil {
		return "", ScriptConfig{}, fmt.Errorf("invalid script path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", ScriptConfig{}, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	return path, script, nil
}

func (r *Runner) command(ctx context.Context, launcher LauncherConfig, name, ext string) (*exec.Cmd, *bytes.Buffer, error) {
	path, script, err := r.resolve(name, ext)
	if err != nil {
		return nil, nil, err
	}

	args := make([]string, 0, len(launcher.Args)+1)
	substituted := false
	for _, a := range launcher.Args {
		if strings.Contains(a, scriptPlaceholder) {
			a = strings.ReplaceAll(a, scriptPlaceholder, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}

	cmd := exec.CommandContext(ctx, launcher.Command, args...)
	cmd.Dir = filepath.Dir(path)

	env := []string{"BASICEQ_SCRIPT=" + name}
	for k, v := range script.Environment {
		env = append(env, fmt.Sprintf("%s=%s", strings.ToUpper(k), v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	return cmd, &stderr, nil
}
