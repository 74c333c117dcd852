package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional server.yaml next to the application. It lets a
// deployment declare its entry point without flags. Flags take precedence
// over manifest values.
type Manifest struct {
	App         string `yaml:"app"`
	WorkerClass string `yaml:"worker_class"`
	Profile     string `yaml:"profile"`
}

func ReadManifest(dir string) (*Manifest, error) {
	var m Manifest
	bs, err := os.ReadFile(filepath.Join(dir, "server.yaml"))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(bs, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
