package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const lockFilename = ".kerntest.lock"

// Result describes a single emulator run.
type Result struct {
	Target  string
	Outcome Outcome

	// ExitStatus is the emulator exit status; -1 if it was killed.
	ExitStatus int

	Duration time.Duration

	// Serial holds everything the kernel wrote to its serial port.
	Serial []byte

	// SerialLog is the file the serial output was saved to, if any.
	SerialLog string
}

// Passed returns true if the outcome matches the target's expectation.
func (r *Result) Passed(t *Target) bool {
	return r.Outcome == t.Expect
}

// Runner launches emulator instances for the targets of a Config.
type Runner struct {
	cfg *Config
	log *logrus.Entry

	// Stream, if set, receives a copy of the serial output of every run
	// as it is produced.
	Stream io.Writer

	// startBackOff controls how emulator launch failures are retried.
	startBackOff func() backoff.BackOff
}

// New returns a Runner for cfg that logs to log.
func New(cfg *Config, log *logrus.Logger) *Runner {
	return &Runner{
		cfg: cfg,
		log: logrus.NewEntry(log),
		startBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return b
		},
	}
}

// Args returns the emulator arguments used to boot t.
func (r *Runner) Args(t *Target) []string {
	emu := r.cfg.Emulator

	args := make([]string, 0, len(emu.Args)+len(t.Args)+6)
	args = append(args, emu.Args...)
	args = append(args,
		"-drive", "format=raw,file="+t.Image,
		"-device", fmt.Sprintf("isa-debug-exit,iobase=0x%x,iosize=0x%02x", emu.ExitPort, emu.ExitIOSize),
		"-serial", "stdio",
	)
	return append(args, t.Args...)
}

// Run boots t and waits until the emulator exits or the target's timeout
// expires. A non-nil error is only returned if the emulator could not be
// run; the outcome of the run is reported in the Result.
func (r *Runner) Run(ctx context.Context, t *Target) (*Result, error) {
	log := r.log.WithFields(logrus.Fields{"target": t.Name, "image": t.Image})

	ctx, cancel := context.WithTimeout(ctx, t.Timeout.Duration)
	defer cancel()

	var serial bytes.Buffer
	out := io.Writer(&serial)
	if r.Stream != nil {
		out = io.MultiWriter(&serial, r.Stream)
	}

	args := r.Args(t)
	log.WithField("args", args).Debug("starting emulator")

	begin := time.Now()
	cmd, err := r.start(args, out)
	if err != nil {
		return nil, fmt.Errorf("target %q: starting %s: %w", t.Name, r.cfg.Emulator.Binary, err)
	}

	timedOut, err := r.wait(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", t.Name, err)
	}

	res := &Result{
		Target:     t.Name,
		ExitStatus: exitStatus(cmd.ProcessState),
		Duration:   time.Since(begin),
		Serial:     serial.Bytes(),
	}

	switch {
	case timedOut:
		res.Outcome = OutcomeTimeout
		res.ExitStatus = -1
	default:
		res.Outcome = DecodeExitStatus(res.ExitStatus, r.cfg.Emulator.SuccessCode)
	}

	if r.cfg.LogDir != "" {
		if res.SerialLog, err = r.saveSerialLog(t, res.Serial); err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"outcome":     res.Outcome,
		"exit_status": res.ExitStatus,
		"duration":    res.Duration.Round(time.Millisecond),
	}).Info("emulator exited")

	return res, nil
}

// start launches the emulator in its own process group. Launch failures
// caused by a busy executable or a temporary lack of resources are retried.
func (r *Runner) start(args []string, out io.Writer) (*exec.Cmd, error) {
	var cmd *exec.Cmd

	op := func() error {
		cmd = exec.Command(r.cfg.Emulator.Binary, args...)
		cmd.Stdout = out
		cmd.Stderr = out
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		err := cmd.Start()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.ETXTBSY), errors.Is(err, unix.EAGAIN):
			r.log.WithError(err).Debug("retrying emulator launch")
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(op, r.startBackOff()); err != nil {
		return nil, err
	}
	return cmd, nil
}

// wait waits for cmd to exit. If ctx expires first the emulator's process
// group is killed and wait reports a timeout.
func (r *Runner) wait(ctx context.Context, cmd *exec.Cmd) (bool, error) {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return false, err
		}
		return false, nil
	case <-ctx.Done():
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			r.log.WithError(err).Warn("killing emulator process group")
		}
		<-done

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return true, nil
		}
		return false, ctx.Err()
	}
}

func (r *Runner) saveSerialLog(t *Target, data []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(r.cfg.LogDir, t.Name+".serial.log")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("saving serial log: %w", err)
	}
	return path, nil
}

// lockLogDir takes the lock file in the log directory so that concurrent
// kerntest invocations do not overwrite each other's serial logs.
func lockLogDir(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(dir, lockFilename)
	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock on %q: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("log dir %q is in use by another run", dir)
	}
	return l.Unlock, nil
}

// exitStatus returns the exit status in state or -1 if the process was
// terminated by a signal.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return -1
	}

	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return state.ExitCode()
	}

	status := unix.WaitStatus(ws)
	if !status.Exited() {
		return -1
	}
	return status.ExitStatus()
}

// RunAll runs the named targets, at most cfg.Parallel at a time, and
// returns their results in the order of names. Targets whose outcome does
// not match their expectation are reported through an *OutcomeError; the
// first emulator failure aborts the remaining runs.
func (r *Runner) RunAll(ctx context.Context, names []string) ([]*Result, error) {
	targets := make([]*Target, len(names))
	for i, name := range names {
		t, err := r.cfg.Target(name)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}

	if r.cfg.LogDir != "" {
		unlock, err := lockLogDir(r.cfg.LogDir)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	results := make([]*Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)

	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			res, err := r.Run(gctx, t)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	var errs []error
	for i, res := range results {
		if !res.Passed(targets[i]) {
			errs = append(errs, &OutcomeError{
				Target:     res.Target,
				Expected:   targets[i].Expect,
				Got:        res.Outcome,
				ExitStatus: res.ExitStatus,
			})
		}
	}
	return results, errors.Join(errs...)
}
