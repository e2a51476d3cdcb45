package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/milady-ai/streamnode/internal/logging"
)

// LogParser parses a subprocess output line and returns the log level and
// message. Used to extract structured log info from encoder output.
type LogParser func(line string) (level, msg string)

// Runner manages the lifecycle of a single supervised subprocess.
type Runner struct {
	id     string
	args   []string
	logger logging.Logger

	outputLogger logging.Logger // logger for process output (nil = use logger)
	logParser    LogParser      // parses process output for log level (nil = info)

	gracefulTimeout time.Duration
	killTimeout     time.Duration
	extraEnv        []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	done    chan error
	started time.Time
	exited  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithGracefulTimeout sets how long Stop waits after SIGINT before killing.
func WithGracefulTimeout(d time.Duration) Option {
	return func(r *Runner) { r.gracefulTimeout = d }
}

// WithLogParser sets a custom logger and parser for subprocess output lines.
func WithLogParser(logger logging.Logger, parser LogParser) Option {
	return func(r *Runner) {
		r.outputLogger = logger
		r.logParser = parser
	}
}

// WithEnv appends environment variables (KEY=VALUE) to the child's inherited
// environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.extraEnv = env }
}

// NewRunner creates a runner for the given command. args[0] is the binary.
func NewRunner(id string, args []string, logger logging.Logger, opts ...Option) *Runner {
	r := &Runner{
		id:              id,
		args:            args,
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start spawns the subprocess and begins streaming its output. It does not
// block; use Stop or Wait to reap the process. withStdin attaches a pipe to
// the child's stdin for frame feeding.
func (r *Runner) Start(withStdin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil && !r.exited {
		return fmt.Errorf("process %s already running", r.id)
	}
	if len(r.args) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.Command(r.args[0], r.args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(r.extraEnv) > 0 {
		cmd.Env = append(os.Environ(), r.extraEnv...)
	}

	if withStdin {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		r.stdin = pipe
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.args[0], err)
	}

	r.cmd = cmd
	r.exited = false
	r.started = time.Now()
	r.logger.Info("Process started", "id", r.id, "pid", cmd.Process.Pid)

	go r.streamOutput(stdout, "stdout")
	go r.streamOutput(stderr, "stderr")

	done := make(chan error, 1)
	r.done = done
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		r.exited = true
		r.mu.Unlock()
		done <- err
	}()

	return nil
}

// Stdin returns the write end of the child's stdin pipe, or nil when the
// process was started without one.
func (r *Runner) Stdin() io.Writer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exited {
		return nil
	}
	return r.stdin
}

// Alive reports whether the subprocess has started and not yet exited.
func (r *Runner) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil && !r.exited
}

// Uptime returns how long the subprocess has been running, zero when stopped.
func (r *Runner) Uptime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.exited {
		return 0
	}
	return time.Since(r.started)
}

// Stop sends SIGINT and waits for the process to exit, escalating to SIGKILL
// after the graceful timeout. Stopping a process that is not running is a
// no-op. The context bounds the total wait.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	running := cmd != nil && !r.exited
	if r.stdin != nil {
		_ = r.stdin.Close()
		r.stdin = nil
	}
	r.mu.Unlock()

	if !running {
		return nil
	}

	r.logger.Info("Stopping process", "id", r.id, "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("Failed to send SIGINT", "id", r.id, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.gracefulTimeout):
	}

	r.logger.Warn("Graceful stop timed out, killing", "id", r.id)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", r.id, err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(r.killTimeout):
		return fmt.Errorf("process %s did not exit after kill", r.id)
	}
}

// Wait blocks until the subprocess exits and returns its exit error.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return errors.New("process not started")
	}
	return <-done
}

// streamOutput relays subprocess output lines through the logging system,
// using the configured parser to pick log levels.
func (r *Runner) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := r.outputLogger
	if logger == nil {
		logger = r.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if r.logParser != nil {
			level, msg = r.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading process output", "id", r.id, "source", source, "error", err)
	}
}
