package sshexec

import "context"

// Result holds the outcome of a single remote command
type Result struct {
	// Output is the combined stdout and stderr of the command
	Output string

	// ExitCode is the remote exit status. Zero means success.
	ExitCode int
}

// Runner executes shell commands on a remote host. It is the sole I/O
// primitive used by the container and proxy managers; everything above
// them goes through this interface, which also makes the orchestration
// logic testable against a scripted fake.
type Runner interface {
	// Run executes the command and returns its combined output and exit
	// status. A non-zero exit status is not an error; errors are reserved
	// for transport failures (connection lost, session setup failed).
	Run(ctx context.Context, command string) (Result, error)

	// RunInput is Run with data piped to the command's stdin. Used to pass
	// registry credentials to docker login without placing them in argv
	// or logs.
	RunInput(ctx context.Context, stdin string, command string) (Result, error)
}
