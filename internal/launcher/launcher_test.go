package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeServer drops a shell script named gunicorn on PATH so that
// launches resolve to it instead of a real server.
func writeFakeServer(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gunicorn")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunPropagatesExitCode(t *testing.T) {
	writeFakeServer(t, "exit 7")

	cfg := testConfig(8080)
	ProfileStandard.Apply(cfg)

	code, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunZeroExit(t *testing.T) {
	writeFakeServer(t, "exit 0")

	cfg := testConfig(8080)
	ProfileStandard.Apply(cfg)

	code, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestRunMissingBinary(t *testing.T) {
	cfg := testConfig(8080)
	cfg.ServerBin = "no-such-server-binary"
	ProfileStandard.Apply(cfg)

	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestRunStreamsOutput(t *testing.T) {
	writeFakeServer(t, `echo "booting $@"`)

	cfg := testConfig(8080)
	ProfileStandard.Apply(cfg)

	var stdout, stderr bytes.Buffer
	l := New(cfg)
	l.SetOutput(&stdout, &stderr)
	code, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "booting")
	assert.Contains(t, stdout.String(), "-b 0.0.0.0:8080")
}

func TestRunForwardsTermination(t *testing.T) {
	// The fake server ignores nothing, so SIGTERM to the group kills it
	// and the reported code is 128+15.
	writeFakeServer(t, "sleep 60")

	cfg := testConfig(8080)
	ProfileStandard.Apply(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	l := New(cfg)
	l.SetGracePeriod(5 * time.Second)

	done := make(chan runResult, 1)
	go func() {
		code, err := l.Run(ctx)
		done <- runResult{code, err}
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 143, r.code)
	case <-time.After(10 * time.Second):
		t.Fatal("launcher did not exit after cancellation")
	}
}

type runResult struct {
	code int
	err  error
}

func TestRunKillsAfterGracePeriod(t *testing.T) {
	// Trap TERM and keep running so only the SIGKILL escalation ends it.
	writeFakeServer(t, "trap '' TERM\nwhile :; do sleep 1; done")

	cfg := testConfig(8080)
	ProfileStandard.Apply(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	l := New(cfg)
	l.SetGracePeriod(500 * time.Millisecond)

	done := make(chan runResult, 1)
	go func() {
		code, err := l.Run(ctx)
		done <- runResult{code, err}
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 137, r.code)
	case <-time.After(10 * time.Second):
		t.Fatal("launcher did not kill the server after the grace period")
	}
}

func TestExecMissingBinary(t *testing.T) {
	cfg := testConfig(8080)
	cfg.ServerBin = "no-such-server-binary"
	ProfileStandard.Apply(cfg)

	err := Exec(cfg)
	assert.ErrorIs(t, err, ErrLaunch)
}
