package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrWaitFileTimeout is a launch failure: the gate never opened, so the
// server was never started.
var ErrWaitFileTimeout = fmt.Errorf("%w: timed out waiting for WAIT_FILE", ErrLaunch)

const (
	waitFileAttempts = 10
	waitFileInterval = 10 * time.Second
)

// AwaitWaitFile blocks until the file named by the WAIT_FILE environment
// variable exists. Deployments use it to gate the launch on provisioning
// steps that finish out of band. No-op when WAIT_FILE is unset.
func AwaitWaitFile(ctx context.Context) error {
	log := logger.Sugar()
	path, ok := os.LookupEnv("WAIT_FILE")
	if !ok || path == "" {
		log.Debug("WAIT_FILE not set, skipping wait")
		return nil
	}
	log.Infow("waiting for file before launch", "path", path)
	return awaitFile(ctx, path, waitFileAttempts, waitFileInterval)
}

func awaitFile(ctx context.Context, path string, attempts int, interval time.Duration) error {
	for i := 0; i < attempts; i++ {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrWaitFileTimeout
}
