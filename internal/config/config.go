// Package config loads the hierarchical configuration that tells a
// pydron master which worker groups to start, which scheduling strategy
// to use, and which TCP ports its own RPC listener may use.
//
// Grounded on pydron/config/config.py's load_config/create_pool/
// create_scheduler/_create_starters/_parse_port_range. The source reads
// JSON; this port reads YAML (a superset for the purposes of this
// schema) via gopkg.in/yaml.v3, matching the rest of the ambient stack's
// commitment to that library, and follows the teacher's
// internal/command/cliconfig layered search-path idiom for locating the
// file in the first place.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/pydron/pydron/internal/diag"
)

// EnvVar is the environment variable load_config checks before falling
// back to the cwd/home/system search path.
const EnvVar = "PYDRON_CONF"

// SystemConfigFile is the last-resort, machine-wide location.
const SystemConfigFile = "/etc/pydron.conf"

// LauncherType names one of the three worker-group launcher kinds the
// teacher's _create_starters dispatches on.
type LauncherType string

const (
	LauncherMulticore LauncherType = "multicore"
	LauncherSSH       LauncherType = "ssh"
	LauncherCloud     LauncherType = "cloud"
)

// WorkerGroup is one entry of the top-level `workers` list: a group of
// identically-launched worker processes.
//
// Grounded on _create_starters's per-entry fields and the ssh/cloud
// conf[...] lookups in _ssh_starter/_ec2_starter.
type WorkerGroup struct {
	Type LauncherType `yaml:"type"`
	// Cores is the number of worker processes this group starts.
	Cores int `yaml:"cores"`
	// DataPorts is the raw form (int, list, or "a-b" range string); use
	// ParseDataPorts to resolve it the way _parse_port_range does.
	DataPorts  interface{} `yaml:"data_ports,omitempty"`
	Preconnect bool        `yaml:"preconnect,omitempty"`

	// SSH launcher fields.
	Hostname        string   `yaml:"hostname,omitempty"`
	Username        string   `yaml:"username,omitempty"`
	Password        string   `yaml:"password,omitempty"`
	PrivateKeyFiles []string `yaml:"private_key_files,omitempty"`
	PrivateKeys     []string `yaml:"private_keys,omitempty"`
	TmpDir          string   `yaml:"tmp_dir,omitempty"`

	// Cloud launcher fields.
	Provider     string `yaml:"provider,omitempty"`
	AccessKeyID  string `yaml:"accesskeyid,omitempty"`
	AccessKey    string `yaml:"accesskey,omitempty"`
	ImageID      string `yaml:"imageid,omitempty"`
	SizeID       string `yaml:"sizeid,omitempty"`
	PublicKey    string `yaml:"publickey,omitempty"`
	PrivateKey   string `yaml:"privatekey,omitempty"`
}

// Config is the whole of a parsed configuration file.
//
// Grounded on load_config's bare dict and create_pool/create_scheduler's
// config["workers"]/config["scheduler"] lookups.
type Config struct {
	Workers []WorkerGroup `yaml:"workers"`
	// Scheduler names a scheduling strategy; empty means "trivial", the
	// source's create_scheduler default.
	Scheduler string `yaml:"scheduler,omitempty"`
	// DataPorts is the master's own RPC listener's port range, same raw
	// shape as a WorkerGroup's DataPorts.
	DataPorts interface{} `yaml:"data_ports,omitempty"`
}

// SchedulerName returns the configured strategy name, defaulting to
// "trivial" the way create_scheduler does.
func (c *Config) SchedulerName() string {
	if c.Scheduler == "" {
		return "trivial"
	}
	return c.Scheduler
}

// Locate runs the search order: explicit path, $PYDRON_CONF, ./pydron.conf,
// ~/pydron.conf, /etc/pydron.conf. Grounded on load_config's `candidates`
// list and its for/else "not found" fallthrough.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	var candidates []string
	if v := os.Getenv(EnvVar); v != "" {
		candidates = append(candidates, v)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "pydron.conf"))
	}
	if home, err := homedir.Dir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "pydron.conf"))
	}
	candidates = append(candidates, SystemConfigFile)

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", diag.Invariantf("config file could not be found, looked for %v", candidates)
}

// Load locates (per Locate) and parses a configuration file.
func Load(explicit string) (*Config, error) {
	path, err := Locate(explicit)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrapf("reading config file: {{err}}", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}
