package launcher

import (
	"github.com/taskagent/launcher/internal/config"
)

// Options are the raw launch inputs gathered from flags and environment,
// before manifest fallbacks and profile presets are applied.
type Options struct {
	Profile     string // --profile
	ProfileEnv  string // LAUNCHER_PROFILE
	Host        string
	Port        int
	ServerBin   string
	AppTarget   string
	WorkerClass string
}

// Resolve merges options and manifest into a validated Config. Precedence
// per field: flag, then environment, then manifest, then default.
func Resolve(opts Options, manifest config.Manifest) (*config.Config, Profile, error) {
	profile, err := ParseProfile(firstNonEmpty(
		opts.Profile, opts.ProfileEnv, manifest.Profile, string(ProfileStandard)))
	if err != nil {
		return nil, "", err
	}

	cfg := &config.Config{
		Host:        opts.Host,
		Port:        opts.Port,
		ServerBin:   opts.ServerBin,
		AppTarget:   firstNonEmpty(opts.AppTarget, manifest.App, config.DefaultAppTarget),
		WorkerClass: firstNonEmpty(opts.WorkerClass, manifest.WorkerClass, config.DefaultWorkerClass),
	}
	profile.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, profile, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
