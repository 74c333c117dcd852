package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrConfig marks configuration failures detected before any launch
// attempt. The process must exit without spawning the server when one of
// these is returned.
var ErrConfig = errors.New("configuration error")

const (
	DefaultHost        = "0.0.0.0"
	DefaultServerBin   = "gunicorn"
	DefaultWorkerClass = "uvicorn.workers.UvicornWorker"
	DefaultAppTarget   = "main:app"
)

// Config holds the launch parameters. Values are read once at startup and
// never mutated.
type Config struct {
	Host        string
	Port        int
	ServerBin   string
	WorkerClass string
	AppTarget   string

	// Worker presets, filled in by the selected profile
	WorkerCount    int
	Preload        bool
	TimeoutSeconds int // 0 disables the timeout flag
}

// PortFromEnv reads and validates the PORT environment variable. The
// deployment host dictates the port, so there is no flag for it.
func PortFromEnv() (int, error) {
	s, ok := os.LookupEnv("PORT")
	if !ok || s == "" {
		return 0, fmt.Errorf("%w: PORT is not set", ErrConfig)
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: PORT is not numeric: %q", ErrConfig, s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: PORT out of range: %d", ErrConfig, p)
	}
	return p, nil
}

// BindAddr returns the host:port pair the server binds to.
func (c *Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrConfig, c.Port)
	}
	if c.ServerBin == "" {
		return fmt.Errorf("%w: server binary must not be empty", ErrConfig)
	}
	if c.WorkerClass == "" {
		return fmt.Errorf("%w: worker class must not be empty", ErrConfig)
	}
	parts := strings.Split(c.AppTarget, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: invalid app target: %q", ErrConfig, c.AppTarget)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker count must be >= 1: %d", ErrConfig, c.WorkerCount)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout must be >= 0: %d", ErrConfig, c.TimeoutSeconds)
	}
	return nil
}
