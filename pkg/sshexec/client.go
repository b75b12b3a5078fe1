package sshexec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/bluetide-io/bluetide/pkg/types"
)

// Client is the SSH-backed Runner implementation. One client holds one
// connection; each command runs in its own session.
type Client struct {
	host string
	conn *ssh.Client
}

// Connect dials the target's host and authenticates with its key or
// password. The caller owns the returned client and must Close it.
func Connect(t types.Target) (*Client, error) {
	port := t.SSHPort
	if port == 0 {
		port = 22
	}
	user := t.User
	if user == "" {
		user = "root"
	}

	var auth []ssh.AuthMethod
	if t.KeyPath != "" {
		key, err := os.ReadFile(t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key %s: %w", t.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key %s: %w", t.KeyPath, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else if t.Password != "" {
		auth = append(auth, ssh.Password(t.Password))
	} else {
		return nil, fmt.Errorf("target %s has neither key_path nor password", t.Name)
	}

	cfg := &ssh.ClientConfig{
		User: user,
		Auth: auth,
		// Deployment targets are operator-provisioned hosts; host key
		// pinning is left to the operator's known_hosts workflow.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	addr := net.JoinHostPort(t.Host, fmt.Sprintf("%d", port))
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &Client{host: t.Host, conn: conn}, nil
}

// Run executes the command in a fresh session and returns its combined
// output and exit status.
func (c *Client) Run(ctx context.Context, command string) (Result, error) {
	return c.run(ctx, "", command)
}

// RunInput executes the command with stdin attached to the given string
func (c *Client) RunInput(ctx context.Context, stdin string, command string) (Result, error) {
	return c.run(ctx, stdin, command)
}

func (c *Client) run(ctx context.Context, stdin string, command string) (Result, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open session on %s: %w", c.host, err)
	}
	defer session.Close()

	if stdin != "" {
		session.Stdin = strings.NewReader(stdin)
	}

	type output struct {
		data []byte
		err  error
	}
	done := make(chan output, 1)
	go func() {
		data, err := session.CombinedOutput(command)
		done <- output{data, err}
	}()

	select {
	case <-ctx.Done():
		// Best effort: tear the session down so the remote command does
		// not outlive the caller.
		_ = session.Signal(ssh.SIGKILL)
		return Result{}, ctx.Err()
	case out := <-done:
		res := Result{Output: string(out.data)}
		if out.err != nil {
			var exitErr *ssh.ExitError
			if errors.As(out.err, &exitErr) {
				res.ExitCode = exitErr.ExitStatus()
				return res, nil
			}
			return res, fmt.Errorf("remote command failed on %s: %w", c.host, out.err)
		}
		return res, nil
	}
}

// CheckConnectivity runs a trivial command to verify the host is reachable
// before any mutating action is attempted.
func (c *Client) CheckConnectivity(ctx context.Context) error {
	res, err := c.Run(ctx, "true")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("connectivity check on %s exited %d", c.host, res.ExitCode)
	}
	return nil
}

// Close tears down the SSH connection
func (c *Client) Close() error {
	return c.conn.Close()
}
