package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bluetide-io/bluetide/pkg/types"
)

// DefaultPath is used when neither --config nor BLUETIDE_CONFIG is set
const DefaultPath = "bluetide.yaml"

// EnvConfigPath overrides the config file location
const EnvConfigPath = "BLUETIDE_CONFIG"

// targetSpec mirrors the YAML shape of one target. The same shape is used
// for the defaults block, which is merged under every target.
type targetSpec struct {
	Host             string        `yaml:"host"`
	SSHPort          int           `yaml:"ssh_port"`
	User             string        `yaml:"user"`
	KeyPath          string        `yaml:"key_path"`
	Password         string        `yaml:"password"`
	ContainerName    string        `yaml:"container_name"`
	Image            string        `yaml:"image"`
	Registry         string        `yaml:"registry"`
	RegistryUser     string        `yaml:"registry_user"`
	RegistryPassword string        `yaml:"registry_password"`
	Port             int           `yaml:"port"`
	AlternatePort    int           `yaml:"alternate_port"`
	HealthPath       string        `yaml:"health_path"`
	HealthTimeout    int           `yaml:"health_timeout"`
	Domain           string        `yaml:"domain"`
	EnvFile          string        `yaml:"env_file"`
	LocalDir         string        `yaml:"local_dir"`
	Mounts           []types.Mount `yaml:"mounts"`
}

// Config is the parsed deployment configuration: a global defaults layer
// and a map of named targets overriding it.
type Config struct {
	Defaults targetSpec            `yaml:"defaults"`
	Targets  map[string]targetSpec `yaml:"targets"`
}

// Path returns the effective config file location
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("config %s defines no targets", path)
	}

	return &cfg, nil
}

// TargetNames returns the configured target names in stable order
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve merges the defaults layer under the named target and validates
// the result. Unknown names and missing required keys are precondition
// errors reported before anything touches the remote host.
func (c *Config) Resolve(name string) (types.Target, error) {
	spec, ok := c.Targets[name]
	if !ok {
		return types.Target{}, fmt.Errorf("unknown target %q (configured: %v)", name, c.TargetNames())
	}

	merged := merge(c.Defaults, spec)

	t := types.Target{
		Name:             name,
		Host:             merged.Host,
		SSHPort:          merged.SSHPort,
		User:             merged.User,
		KeyPath:          merged.KeyPath,
		Password:         merged.Password,
		ContainerName:    merged.ContainerName,
		Image:            merged.Image,
		Registry:         merged.Registry,
		RegistryUser:     merged.RegistryUser,
		RegistryPassword: merged.RegistryPassword,
		CanonicalPort:    merged.Port,
		AlternatePort:    merged.AlternatePort,
		HealthPath:       merged.HealthPath,
		HealthTimeout:    merged.HealthTimeout,
		Domain:           merged.Domain,
		EnvFile:          merged.EnvFile,
		LocalDir:         merged.LocalDir,
		Mounts:           merged.Mounts,
	}

	applyDefaults(&t)

	if err := validate(t); err != nil {
		return types.Target{}, err
	}
	return t, nil
}

// merge overlays non-zero target values on the defaults layer
func merge(base, over targetSpec) targetSpec {
	out := base
	if over.Host != "" {
		out.Host = over.Host
	}
	if over.SSHPort != 0 {
		out.SSHPort = over.SSHPort
	}
	if over.User != "" {
		out.User = over.User
	}
	if over.KeyPath != "" {
		out.KeyPath = over.KeyPath
	}
	if over.Password != "" {
		out.Password = over.Password
	}
	if over.ContainerName != "" {
		out.ContainerName = over.ContainerName
	}
	if over.Image != "" {
		out.Image = over.Image
	}
	if over.Registry != "" {
		out.Registry = over.Registry
	}
	if over.RegistryUser != "" {
		out.RegistryUser = over.RegistryUser
	}
	if over.RegistryPassword != "" {
		out.RegistryPassword = over.RegistryPassword
	}
	if over.Port != 0 {
		out.Port = over.Port
	}
	if over.AlternatePort != 0 {
		out.AlternatePort = over.AlternatePort
	}
	if over.HealthPath != "" {
		out.HealthPath = over.HealthPath
	}
	if over.HealthTimeout != 0 {
		out.HealthTimeout = over.HealthTimeout
	}
	if over.Domain != "" {
		out.Domain = over.Domain
	}
	if over.EnvFile != "" {
		out.EnvFile = over.EnvFile
	}
	if over.LocalDir != "" {
		out.LocalDir = over.LocalDir
	}
	if len(over.Mounts) > 0 {
		out.Mounts = over.Mounts
	}
	return out
}

func applyDefaults(t *types.Target) {
	if t.ContainerName == "" {
		t.ContainerName = t.Name
	}
	if t.User == "" {
		t.User = "root"
	}
	if t.SSHPort == 0 {
		t.SSHPort = 22
	}
	if t.HealthPath == "" {
		t.HealthPath = "/"
	}
	if t.HealthTimeout == 0 {
		t.HealthTimeout = 30
	}
	if t.AlternatePort == 0 && t.CanonicalPort != 0 {
		t.AlternatePort = t.CanonicalPort + 1
	}
}

func validate(t types.Target) error {
	if t.Host == "" {
		return fmt.Errorf("target %s: host is required", t.Name)
	}
	if t.Image == "" {
		return fmt.Errorf("target %s: image is required", t.Name)
	}
	if t.CanonicalPort == 0 {
		return fmt.Errorf("target %s: port is required", t.Name)
	}
	if t.AlternatePort == t.CanonicalPort {
		return fmt.Errorf("target %s: alternate_port must differ from port", t.Name)
	}
	if (t.Registry != "") != (t.RegistryUser != "") {
		return fmt.Errorf("target %s: registry and registry_user must be set together", t.Name)
	}
	return nil
}
