package process_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/cmdstream/errors"
	"github.com/kbukum/cmdstream/process"
)

func TestStartCatEchoesStdin(t *testing.T) {
	var out bytes.Buffer
	h, err := process.Start(context.Background(), process.Command{
		Binary: "cat",
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := io.WriteString(h.Stdin(), "from "); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := io.WriteString(h.Stdin(), "stdin"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Stdin().Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Second close must not panic or block.
	_ = h.Stdin().Close()

	exit := h.Exit()
	if !exit.Success() {
		t.Fatalf("expected success, got %s (%v)", exit, exit.Err)
	}
	if out.String() != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", out.String())
	}
	if h.Stdout() != nil {
		t.Fatal("expected nil Stdout reader when a writer is configured")
	}
}

func TestStartPipeReaders(t *testing.T) {
	h, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "cat; echo oops >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errCh := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(h.Stderr())
		errCh <- string(b)
	}()

	_, _ = io.WriteString(h.Stdin(), "abc")
	_ = h.Stdin().Close()

	stdout, err := io.ReadAll(h.Stdout())
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if string(stdout) != "abc" {
		t.Fatalf("expected 'abc', got %q", stdout)
	}
	if got := strings.TrimSpace(<-errCh); got != "oops" {
		t.Fatalf("expected 'oops' on stderr, got %q", got)
	}
	<-h.Done()

	for name, r := range map[string]io.ReadCloser{"stdout": h.Stdout(), "stderr": h.Stderr()} {
		if err := r.Close(); err != nil {
			t.Fatalf("close %s: %v", name, err)
		}
		if _, err := r.Read(make([]byte, 1)); !stderrors.Is(err, os.ErrClosed) {
			t.Fatalf("expected %s read after close to fail with ErrClosed, got %v", name, err)
		}
	}
}

func TestStartExitCode(t *testing.T) {
	h, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "exit 42"},
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exit := h.Exit()
	if exit.Code != 42 {
		t.Fatalf("expected exit code 42, got %d", exit.Code)
	}
	if exit.Err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if exit.Success() {
		t.Fatal("expected non-success")
	}
}

func TestStartEmptyBinary(t *testing.T) {
	for _, bin := range []string{"", "   "} {
		_, err := process.Start(context.Background(), process.Command{Binary: bin})
		if !errors.IsConfigError(err) {
			t.Fatalf("binary %q: expected ConfigError, got %v", bin, err)
		}
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := process.Start(context.Background(), process.Command{Binary: "definitely-not-a-real-binary-xyz"})
	if !errors.IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestStartContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	h, err := process.Start(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
		Stdout:      io.Discard,
		Stderr:      io.Discard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exit := h.Exit()
	if exit.Err == nil {
		t.Fatal("expected error from context cancellation")
	}
	if exit.Signal == "" {
		t.Fatalf("expected a terminating signal, got %s", exit)
	}
	if exit.Duration > 5*time.Second {
		t.Fatalf("process took too long to kill: %v", exit.Duration)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	h, err := process.Start(context.Background(), process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "trap '' TERM; sleep 10"},
		GracePeriod: 200 * time.Millisecond,
		Stdout:      io.Discard,
		Stderr:      io.Discard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Give the shell time to install the trap.
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if exit := h.Exit(); exit.Signal == "" {
		t.Fatalf("expected process to be killed, got %s", exit)
	}
}

func TestWaitContext(t *testing.T) {
	h, err := process.Start(context.Background(), process.Command{
		Binary: "cat",
		Stdout: io.Discard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); err == nil {
		t.Fatal("expected Wait to give up while stdin is open")
	}

	_ = h.Stdin().Close()
	exit, err := h.Wait(context.Background())
	if err != nil || exit.Code != 0 {
		t.Fatalf("expected clean exit, got %v / %v", exit, err)
	}
}

func TestStartEnv(t *testing.T) {
	var out bytes.Buffer
	h, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo $MY_TEST_VAR"},
		Env:    []string{"MY_TEST_VAR=hello123"},
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-h.Done()
	if got := strings.TrimSpace(out.String()); got != "hello123" {
		t.Fatalf("expected 'hello123', got %q", got)
	}
}

func TestCommandString(t *testing.T) {
	cmd := process.Command{Binary: "ffmpeg", Args: []string{"-i", "-"}}
	if cmd.String() != "ffmpeg -i -" {
		t.Fatalf("unexpected command line %q", cmd.String())
	}
}
