package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/replicate/go/logging"
	"golang.org/x/sync/errgroup"

	"github.com/taskagent/launcher/internal/config"
)

var logger = logging.New("launcher")

// ErrLaunch marks failures to find or start the server binary.
var ErrLaunch = errors.New("launch error")

const DefaultShutdownGracePeriod = 10 * time.Second

// Launcher spawns the server binary in its own process group and
// supervises it until exit.
type Launcher struct {
	cfg         *config.Config
	stdout      io.Writer
	stderr      io.Writer
	gracePeriod time.Duration
}

func New(cfg *config.Config) *Launcher {
	return &Launcher{
		cfg:         cfg,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		gracePeriod: DefaultShutdownGracePeriod,
	}
}

// SetGracePeriod sets how long to wait after forwarding SIGTERM before the
// process group is SIGKILLed.
func (l *Launcher) SetGracePeriod(d time.Duration) {
	l.gracePeriod = d
}

// SetOutput redirects the child's stdout and stderr streams.
func (l *Launcher) SetOutput(stdout, stderr io.Writer) {
	l.stdout = stdout
	l.stderr = stderr
}

// Run launches the server process and blocks until it exits or ctx is
// canceled. It returns the child's exit code; a child killed by a signal
// reports 128+signal. Cancellation forwards SIGTERM to the child's process
// group so the server can shut its workers down cleanly.
func (l *Launcher) Run(ctx context.Context) (int, error) {
	log := logger.Sugar()

	bin, err := exec.LookPath(l.cfg.ServerBin)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrLaunch, l.cfg.ServerBin, err)
	}

	args := Args(l.cfg)
	cmd := exec.Command(bin, args...) //nolint:gosec // expected subprocess launched with variable
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	log.Infow("launching server", "bin", bin, "args", args)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	pid := cmd.Process.Pid

	// Pump the child's streams through to ours. The pipes close when the
	// child exits, and Wait must not run before the pumps drain.
	eg := &errgroup.Group{}
	eg.Go(func() error {
		_, err := io.Copy(l.stdout, stdout)
		return err
	})
	eg.Go(func() error {
		_, err := io.Copy(l.stderr, stderr)
		return err
	})

	done := make(chan error, 1)
	go func() {
		if perr := eg.Wait(); perr != nil {
			log.Errorw("streaming server output failed", "error", perr)
		}
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		log.Infow("forwarding termination to server process group", "pid", pid)
		if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			log.Errorw("failed to signal process group", "pid", pid, "error", err)
		}
		select {
		case waitErr = <-done:
		case <-time.After(l.gracePeriod):
			log.Errorw("server did not exit within grace period, killing", "pid", pid, "grace_period", l.gracePeriod)
			if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
				log.Errorw("failed to kill process group", "pid", pid, "error", err)
			}
			waitErr = <-done
		}
	}

	return exitCode(waitErr)
}

func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(waitErr, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return ee.ExitCode(), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrLaunch, waitErr)
}
