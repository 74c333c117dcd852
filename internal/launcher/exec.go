package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/taskagent/launcher/internal/config"
)

// Exec replaces the launcher process with the server binary. Signals reach
// the server directly and its exit status becomes ours. It only returns on
// error.
func Exec(cfg *config.Config) error {
	bin, err := exec.LookPath(cfg.ServerBin)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLaunch, cfg.ServerBin, err)
	}
	argv := append([]string{bin}, Args(cfg)...)
	if err := syscall.Exec(bin, argv, os.Environ()); err != nil {
		return fmt.Errorf("%w: exec %s: %v", ErrLaunch, bin, err)
	}
	return nil
}
