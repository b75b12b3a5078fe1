package container

import (
	"fmt"
	"strings"

	"github.com/bluetide-io/bluetide/pkg/types"
)

// PortBinding maps a host port to a container port
type PortBinding struct {
	Host      int
	Container int
}

// RunOptions describes one docker run invocation with explicit, typed
// fields. Command assembly lives here so the rest of the code never
// concatenates user-supplied strings into shell commands.
type RunOptions struct {
	Name  string
	Image string

	// HostNetwork binds the container to host networking. Proxied targets
	// use it so Caddy can reach the backend on localhost; it is mutually
	// exclusive with Ports.
	HostNetwork bool

	// Ports are explicit host-to-container mappings for direct-deployment
	// targets.
	Ports []PortBinding

	// Env are KEY=VALUE pairs passed individually to the container
	Env []string

	// EnvFile is the remote path of the environment file, empty to skip
	EnvFile string

	// Mounts are bind mounts of remote paths into the container
	Mounts []types.Mount

	// RestartAlways sets the restart policy that revives long-lived
	// canonical instances across host reboots. Transient candidates leave
	// it unset.
	RestartAlways bool

	// Detach runs the container in the background (the normal case)
	Detach bool
}

// Command renders the docker run command line. Every interpolated value is
// shell-quoted.
func (o RunOptions) Command() string {
	args := []string{"docker", "run"}
	if o.Detach {
		args = append(args, "-d")
	}
	args = append(args, "--name", shellQuote(o.Name))

	if o.HostNetwork {
		args = append(args, "--network", "host")
	}
	for _, p := range o.Ports {
		args = append(args, "-p", fmt.Sprintf("%d:%d", p.Host, p.Container))
	}
	if o.RestartAlways {
		args = append(args, "--restart", "always")
	}
	for _, e := range o.Env {
		args = append(args, "-e", shellQuote(e))
	}
	if o.EnvFile != "" {
		args = append(args, "--env-file", shellQuote(o.EnvFile))
	}
	for _, m := range o.Mounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", shellQuote(spec))
	}

	args = append(args, shellQuote(o.Image))
	return strings.Join(args, " ")
}

// shellQuote wraps a value in single quotes, escaping embedded single
// quotes, so arbitrary config values cannot break out of their argument
// position on the remote shell.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~%{}!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
