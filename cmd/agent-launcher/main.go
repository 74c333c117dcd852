package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/replicate/go/logging"
	"github.com/replicate/go/must"
	_ "go.uber.org/automaxprocs"

	"github.com/taskagent/launcher/internal/config"
	"github.com/taskagent/launcher/internal/launcher"
	"github.com/taskagent/launcher/internal/util"
)

var logger = logging.New("agent-launcher")

const (
	exitConfig = 2
	exitLaunch = 3
)

type Flags struct {
	Profile             string `ff:"long: profile, nodefault, usage: deployment profile (standard or low-memory)"`
	Host                string `ff:"long: host, default: 0.0.0.0, usage: interface the server binds to"`
	ServerBin           string `ff:"long: server-bin, default: gunicorn, usage: server binary to launch"`
	AppTarget           string `ff:"long: app-target, nodefault, usage: module:attribute of the application entry point"`
	WorkerClass         string `ff:"long: worker-class, nodefault, usage: async worker adapter class"`
	WorkingDir          string `ff:"long: working-dir, nodefault, usage: directory holding the application and optional server.yaml"`
	Exec                bool   `ff:"long: exec, default: false, usage: replace the launcher process instead of supervising"`
	DryRun              bool   `ff:"long: dry-run, default: false, usage: print the assembled command line and exit"`
	ShutdownGracePeriod string `ff:"long: shutdown-grace-period, default: 10s, usage: how long to wait after SIGTERM before SIGKILL"`
}

func main() {
	log := logger.Sugar()

	var flags Flags
	fs := ff.NewFlagSet("agent-launcher")
	must.Do(fs.AddStruct(&flags))

	var childExit int
	cmd := &ff.Command{
		Name:  "agent-launcher",
		Usage: "agent-launcher [FLAGS]",
		Flags: fs,
		Exec: func(ctx context.Context, args []string) error {
			code, err := run(ctx, &flags)
			childExit = code
			return err
		},
	}

	err := cmd.Parse(os.Args[1:])
	switch {
	case errors.Is(err, ff.ErrHelp):
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	case err != nil:
		log.Error(err)
		must.Get(fmt.Fprintln(os.Stderr, ffhelp.Command(cmd)))
		os.Exit(1)
	}

	log.Infow("starting agent-launcher", "version", util.Version())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		s := <-ch
		log.Infow("stopping launcher", "signal", s)
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		must.Get(fmt.Fprintln(os.Stderr, "agent-launcher:", err))
		os.Exit(exitCodeFor(err))
	}
	if childExit != 0 {
		log.Errorw("server exited with non-zero status", "code", childExit)
		os.Exit(childExit)
	}
	if !flags.DryRun {
		log.Info("server exited normally")
	}
}

// exitCodeFor maps configuration errors to exitConfig and everything else,
// including launch failures, to exitLaunch. Child exit codes never pass
// through here.
func exitCodeFor(err error) int {
	if errors.Is(err, config.ErrConfig) {
		return exitConfig
	}
	return exitLaunch
}

// run resolves the configuration and launches the server. It returns the
// child's exit code once the child has been started.
func run(ctx context.Context, flags *Flags) (int, error) {
	log := logger.Sugar()

	port, err := config.PortFromEnv()
	if err != nil {
		return 0, err
	}

	grace, err := time.ParseDuration(flags.ShutdownGracePeriod)
	if err != nil || grace < 0 {
		return 0, fmt.Errorf("%w: invalid shutdown grace period: %q", config.ErrConfig, flags.ShutdownGracePeriod)
	}

	workingDir := flags.WorkingDir
	if workingDir == "" {
		workingDir = must.Get(os.Getwd())
	}

	var manifest config.Manifest
	if m, err := config.ReadManifest(workingDir); err == nil {
		manifest = *m
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: reading server.yaml: %v", config.ErrConfig, err)
	}

	cfg, profile, err := launcher.Resolve(launcher.Options{
		Profile:     flags.Profile,
		ProfileEnv:  os.Getenv("LAUNCHER_PROFILE"),
		Host:        flags.Host,
		Port:        port,
		ServerBin:   flags.ServerBin,
		AppTarget:   flags.AppTarget,
		WorkerClass: flags.WorkerClass,
	}, manifest)
	if err != nil {
		return 0, err
	}

	log.Infow("configuration",
		"profile", profile,
		"bind", cfg.BindAddr(),
		"app-target", cfg.AppTarget,
		"worker-class", cfg.WorkerClass,
		"workers", cfg.WorkerCount,
		"preload", cfg.Preload,
		"timeout", cfg.TimeoutSeconds,
	)

	if flags.DryRun {
		fmt.Println(launcher.CommandLine(cfg))
		return 0, nil
	}

	if err := launcher.AwaitWaitFile(ctx); err != nil {
		return 0, err
	}

	if flags.Exec {
		// Only returns on error.
		return 0, launcher.Exec(cfg)
	}

	l := launcher.New(cfg)
	l.SetGracePeriod(grace)
	return l.Run(ctx)
}
