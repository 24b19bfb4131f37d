package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds the time spent collecting output of a killed command
// whose children still hold stdout or stderr open.
const waitDelay = time.Second

type StderrFunc func(ctx context.Context, line string)

// LogStderr logs stderr lines of the probe on debug level.
func LogStderr(ctx context.Context, line string) {
	slog.DebugContext(ctx, "probe stderr", "line", line)
}

// Runner executes a Command, one invocation at a time.
type Runner struct {
	cmd        Command
	stderrFunc StderrFunc

	mx      sync.Mutex
	running bool
	result  Result
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  []byte
	Err     error
}

func NewRunner(cmd Command, stderrFunc StderrFunc) *Runner {
	return &Runner{
		cmd:        cmd,
		stderrFunc: stderrFunc,
		result:     Result{Err: ErrProbeNotStarted},
	}
}

func (r *Runner) Command() Command {
	return r.cmd
}

// Probe runs the command, waits for it and returns the captured stdout. It
// returns an *InvocationError when the command can't be started or exceeds
// its timeout, ErrProbeInProgress when called concurrently, or the error of
// ctx when it is done. Exit status is not inspected: grep exits with 1 when
// nothing matches and this is a valid empty result.
func (r *Runner) Probe(ctx context.Context) ([]byte, error) {
	r.mx.Lock()
	if r.running {
		r.mx.Unlock()
		return nil, ErrProbeInProgress
	}
	r.running = true
	r.mx.Unlock()

	res := r.run(ctx)

	r.mx.Lock()
	r.running = false
	r.result = res
	r.mx.Unlock()
	return res.Stdout, res.Err
}

func (r *Runner) run(parent context.Context) Result {
	res := Result{
		Path: r.cmd.Path,
		Args: append([]string(nil), r.cmd.Args...),
	}

	ctx := parent
	if r.cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.cmd.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.cmd.Path, r.cmd.Args...)
	cmd.Env = r.cmd.Env
	cmd.WaitDelay = waitDelay
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	var (
		wg sync.WaitGroup
		pw *io.PipeWriter
	)
	if r.stderrFunc != nil {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		cmd.Stderr = pw
		wg.Go(func() {
			processStderr(parent, pr, r.stderrFunc)
		})
	}

	res.Started = time.Now().UTC()
	err := cmd.Start()
	if err == nil {
		err = cmd.Wait()
	}
	res.Stopped = time.Now().UTC()
	if pw != nil {
		_ = pw.Close()
		wg.Wait()
	}
	res.State = cmd.ProcessState
	res.Stdout = stdout.Bytes()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case parent.Err() != nil:
		res.Err = parent.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = &InvocationError{Path: r.cmd.Path, Err: fmt.Errorf("%w after %s", ErrTimeout, r.cmd.Timeout)}
	case errors.As(err, &exitErr):
		slog.DebugContext(parent, "probe exited", "path", r.cmd.Path, "exit_code", exitErr.ExitCode())
	default:
		res.Err = &InvocationError{Path: r.cmd.Path, Err: err}
	}
	return res
}

func processStderr(ctx context.Context, stderr io.ReadCloser, stderrFunc StderrFunc) {
	defer func() {
		_ = stderr.Close()
	}()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		stderrFunc(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "processing stderr", "error", err)
		// unblock the writer
		_, _ = io.Copy(io.Discard, stderr)
	}
}

// LastResult returns the result of the last finished probe or a result with
// ErrProbeNotStarted.
func (r *Runner) LastResult() Result {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.result
}
