package launcher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskagent/launcher/internal/config"
)

// Profile selects one of the deployment presets.
type Profile string

const (
	// ProfileStandard runs 4 workers with the server's default timeout.
	ProfileStandard Profile = "standard"
	// ProfileLowMemory runs a single preloaded worker with a 300s timeout,
	// trading parallelism for a smaller footprint.
	ProfileLowMemory Profile = "low-memory"
)

func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileStandard:
		return ProfileStandard, nil
	case ProfileLowMemory:
		return ProfileLowMemory, nil
	default:
		return "", fmt.Errorf("%w: unknown profile: %q", config.ErrConfig, s)
	}
}

// Apply sets the profile's worker presets on cfg.
func (p Profile) Apply(cfg *config.Config) {
	switch p {
	case ProfileLowMemory:
		cfg.WorkerCount = 1
		cfg.Preload = true
		cfg.TimeoutSeconds = 300
	default:
		cfg.WorkerCount = 4
		cfg.Preload = false
		cfg.TimeoutSeconds = 0
	}
}

// Args assembles the server argument list for cfg. The order matches the
// deployment contract: preload and timeout first, then workers, worker
// class, app target, and bind address.
func Args(cfg *config.Config) []string {
	var args []string
	if cfg.Preload {
		args = append(args, "--preload")
	}
	if cfg.TimeoutSeconds > 0 {
		args = append(args, "--timeout", strconv.Itoa(cfg.TimeoutSeconds))
	}
	args = append(args,
		"-w", strconv.Itoa(cfg.WorkerCount),
		"-k", cfg.WorkerClass,
		cfg.AppTarget,
		"-b", cfg.BindAddr(),
	)
	return args
}

// CommandLine renders the full invocation, for logging and --dry-run.
func CommandLine(cfg *config.Config) string {
	return strings.Join(append([]string{cfg.ServerBin}, Args(cfg)...), " ")
}
