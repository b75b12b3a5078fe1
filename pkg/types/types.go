package types

import "time"

// Target describes one deployable unit: a container image deployed to a
// single remote host, optionally fronted by a Caddy reverse proxy.
type Target struct {
	// Name is the unique key for the target. It is used to derive the
	// default container name, the remote state directories and the proxy
	// container name.
	Name string

	// Host is the remote host address for SSH.
	Host string

	// SSHPort is the SSH port on the remote host (default: 22)
	SSHPort int

	// User is the SSH user (default: root)
	User string

	// KeyPath is the path to the SSH private key. Empty means password auth.
	KeyPath string

	// Password is the SSH password, used only when KeyPath is empty.
	Password string

	// ContainerName is the canonical container name (default: Name)
	ContainerName string

	// Image is the image reference, with or without an embedded tag
	Image string

	// Registry is the registry host for docker login. Empty means public
	// image, no authentication.
	Registry         string
	RegistryUser     string
	RegistryPassword string

	// CanonicalPort is the stable port the proxy forwards to when no
	// deployment is in progress.
	CanonicalPort int

	// AlternatePort is the transient port used by the candidate container
	// during a zero-downtime switch.
	AlternatePort int

	// HealthPath is the readiness endpoint polled on the candidate (default: /)
	HealthPath string

	// HealthTimeout is the health check timeout in seconds (default: 30)
	HealthTimeout int

	// Domain enables a name-based virtual host with automatic TLS on the
	// proxy. Empty means plain HTTP on port 80.
	Domain string

	// EnvFile is the local path to the environment file uploaded with the
	// target files and injected into the container.
	EnvFile string

	// LocalDir is the local directory uploaded to the remote app directory
	// before deployment. Empty means nothing to upload.
	LocalDir string

	// Mounts are local-file to container-path bind mounts
	Mounts []Mount
}

// Mount is a single bind mount of an uploaded file into the container
type Mount struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"read_only"`
}

// AppDir returns the remote directory holding the target's uploaded files
// and environment file.
func (t Target) AppDir() string {
	return "/var/app/" + t.ContainerName
}

// ProxyDir returns the remote directory holding the proxy's persistent
// state and generated configuration.
func (t Target) ProxyDir() string {
	return "/var/app/caddy-" + t.Name
}

// Outcome classifies how a deployment attempt ended
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeHealthCheckFailed Outcome = "health-check-failed"
	OutcomeError             Outcome = "error"
)

// Attempt is the per-invocation record of one deployment. It is not
// persisted beyond log output and the batch driver's failure markers.
type Attempt struct {
	ID        string
	Target    string
	Tag       string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Err       error
}

// Failed reports whether the attempt ended in anything but success
func (a Attempt) Failed() bool {
	return a.Outcome != OutcomeSuccess
}
