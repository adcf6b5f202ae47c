package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kbukum/cmdstream/errors"
	"github.com/kbukum/cmdstream/logger"
)

// Handle is a running subprocess whose stdin stays open until closed by its
// single writer.
type Handle struct {
	cmd   *exec.Cmd
	log   *logger.Logger
	grace time.Duration

	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	started time.Time
	done    chan struct{}
	exit    Exit
}

// Start launches cmd and returns once the process is running. If ctx is
// canceled, SIGTERM is sent to the process group first, then SIGKILL after
// GracePeriod.
func Start(ctx context.Context, cmd Command) (*Handle, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	log := cmd.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("process")

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	h := &Handle{
		cmd:   c,
		log:   log,
		grace: cmd.gracePeriod(),
		done:  make(chan struct{}),
	}

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, errors.ConfigError("binary", "cannot attach stdin").WithCause(err)
	}
	h.stdin = stdin

	// Parent ends of the output pipes are closed once the child holds them,
	// so readers see EOF when the process exits. exec's own StdoutPipe would
	// be closed by Wait before a slow reader is done.
	var childEnds []*os.File
	closeChildEnds := func() {
		for _, f := range childEnds {
			_ = f.Close()
		}
	}

	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	} else {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, errors.Internal(err)
		}
		c.Stdout = w
		h.stdout = r
		childEnds = append(childEnds, w)
	}

	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	} else {
		r, w, err := os.Pipe()
		if err != nil {
			closeChildEnds()
			h.closeReaders()
			return nil, errors.Internal(err)
		}
		c.Stderr = w
		h.stderr = r
		childEnds = append(childEnds, w)
	}

	// Use process group so we can kill the entire tree
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Don't let exec.CommandContext kill with SIGKILL immediately
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = h.grace

	h.started = time.Now()
	err = c.Start()
	closeChildEnds()
	if err != nil {
		h.closeReaders()
		return nil, errors.ConfigError("binary", fmt.Sprintf("cannot start %q", cmd.Binary)).WithCause(err)
	}

	log.Info("process started", logger.Fields(
		logger.FieldPID, c.Process.Pid,
		"command", cmd.String(),
	))

	go h.wait(ctx)
	return h, nil
}

func (h *Handle) wait(ctx context.Context) {
	err := h.cmd.Wait()

	exit := Exit{Duration: time.Since(h.started), Code: -1}
	if ps := h.cmd.ProcessState; ps != nil {
		exit.Code = ps.ExitCode()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			exit.Signal = ws.Signal().String()
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			exit.Err = fmt.Errorf("process: killed by context: %w", ctx.Err())
		case stderrors.As(err, &exitErr):
			exit.Err = fmt.Errorf("process: %s: %w", exit, err)
		default:
			exit.Err = fmt.Errorf("process: wait: %w", err)
		}
	}
	h.exit = exit

	fields := logger.Fields(
		logger.FieldPID, h.cmd.Process.Pid,
		logger.FieldExitCode, exit.Code,
		logger.FieldDuration, exit.Duration.Milliseconds(),
	)
	if exit.Signal != "" {
		fields[logger.FieldSignal] = exit.Signal
	}
	if exit.Err != nil {
		h.log.Warn("process exited", logger.MergeWithError(fields, exit.Err))
	} else {
		h.log.Info("process exited", fields)
	}

	close(h.done)
}

// Stdin returns the write end of the process input. Closing it is idempotent.
func (h *Handle) Stdin() io.WriteCloser {
	return h.stdin
}

// Stdout returns the process output reader, or nil when Command.Stdout was
// set. The caller owns it and closes it once done reading.
func (h *Handle) Stdout() io.ReadCloser {
	return h.stdout
}

// Stderr returns the process diagnostics reader, or nil when Command.Stderr
// was set. The caller owns it and closes it once done reading.
func (h *Handle) Stderr() io.ReadCloser {
	return h.stderr
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Done is closed once the process has exited and its output has been flushed
// to any configured writers.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exit returns the exit status. It is only meaningful after Done is closed.
func (h *Handle) Exit() Exit {
	<-h.done
	return h.exit
}

// Wait blocks until the process exits or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Exit, error) {
	select {
	case <-h.done:
		return h.exit, nil
	case <-ctx.Done():
		return Exit{}, ctx.Err()
	}
}

// Stop sends SIGTERM to the process group, then SIGKILL after the grace
// period, and waits for the process to exit or ctx to be done.
func (h *Handle) Stop(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	h.signal(syscall.SIGTERM)

	timer := time.NewTimer(h.grace)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		h.log.Warn("process ignored SIGTERM, killing", logger.Fields(logger.FieldPID, h.PID()))
		h.signal(syscall.SIGKILL)
	case <-ctx.Done():
		h.signal(syscall.SIGKILL)
		return ctx.Err()
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) signal(sig syscall.Signal) {
	select {
	case <-h.done:
		return
	default:
	}
	_ = syscall.Kill(-h.cmd.Process.Pid, sig)
}

func (h *Handle) closeReaders() {
	if h.stdout != nil {
		_ = h.stdout.Close()
	}
	if h.stderr != nil {
		_ = h.stderr.Close()
	}
	if h.stdin != nil {
		_ = h.stdin.Close()
	}
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
