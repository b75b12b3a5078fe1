package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/bluetide-io/bluetide/pkg/container"
	"github.com/bluetide-io/bluetide/pkg/term"
	"github.com/bluetide-io/bluetide/pkg/types"
)

// CandidateSuffix is appended to the canonical container name for the
// transient candidate instance.
const CandidateSuffix = "-blue"

// CandidateName returns the candidate container name for a target
func CandidateName(t types.Target) string {
	return t.ContainerName + CandidateSuffix
}

// BlueGreen performs the zero-downtime deployment:
//
//	candidate up on the alternate port → health check → traffic to the
//	alternate port → incumbent retired → canonical recreated on the
//	canonical port → traffic back → candidate removed → verified.
//
// The one recoverable failure is the health check: the candidate is torn
// down and the incumbent keeps serving, with the routing fact never
// touched. After the traffic switch the machine is fail-fast only; the
// post-switch verification failure (ErrCanonicalDown) has no automatic
// recovery because the previous good instance is already gone.
func (d *Deployer) BlueGreen(ctx context.Context, t types.Target, tag string) (types.Attempt, error) {
	attempt := newAttempt(t, tag)
	image := container.NormalizeImageRef(t.Image, tag)
	candidate := CandidateName(t)

	if err := preflight(t); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	conn, err := d.dial(t)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	defer conn.Close()

	term.Step("checking connectivity to %s", t.Host)
	if err := conn.CheckConnectivity(ctx); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	containers := container.NewManager(conn)
	proxies := proxyController(conn)

	// Precondition: the proxy must already be serving this target.
	running, err := proxies.IsRunning(ctx, t)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	if !running {
		return finish(attempt, types.OutcomeError,
			fmt.Errorf("target %s: %w", t.Name, ErrProxyNotRunning))
	}

	envFile, mounts, err := d.stage(ctx, conn, t)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	if err := d.authenticate(ctx, containers, t); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("pulling %s", image)
	if err := containers.Pull(ctx, image); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	// A stale candidate from a previous failed attempt is never reused
	if err := containers.StopAndRemove(ctx, candidate); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("starting candidate %s on port %d", candidate, t.AlternatePort)
	if err := containers.Run(ctx, container.RunOptions{
		Name:        candidate,
		Image:       image,
		HostNetwork: true,
		Env:         []string{fmt.Sprintf("PORT=%d", t.AlternatePort)},
		EnvFile:     envFile,
		Mounts:      mounts,
	}); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("health checking http://localhost:%d%s (timeout %ds)", t.AlternatePort, t.HealthPath, t.HealthTimeout)
	elapsed, err := d.waitHealthy(ctx, conn, t.AlternatePort, t.HealthPath, t.HealthTimeout)
	if err != nil {
		// Abort path: dump diagnostics, tear the candidate down, leave the
		// incumbent serving. The routing fact was never touched.
		term.Failure("candidate failed health check: %v", err)
		d.dumpLogs(ctx, containers, candidate)
		if rmErr := containers.StopAndRemove(ctx, candidate); rmErr != nil {
			d.logger.Warn().Err(rmErr).Str("container", candidate).Msg("failed to remove unhealthy candidate")
		}
		return finish(attempt, types.OutcomeHealthCheckFailed,
			fmt.Errorf("target %s: %w after %ds", t.Name, ErrHealthCheckFailed, t.HealthTimeout))
	}
	term.Success("candidate healthy after %ds", elapsed)

	term.Step("switching traffic to port %d", t.AlternatePort)
	if err := proxies.PointTo(ctx, t, t.AlternatePort); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	// Let in-flight requests against the old backend drain. Best effort;
	// Caddy's own graceful reload covers already-accepted connections.
	time.Sleep(d.settle)

	term.Step("retiring incumbent %s", t.ContainerName)
	if err := containers.StopAndRemove(ctx, t.ContainerName); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("recreating %s on port %d", t.ContainerName, t.CanonicalPort)
	if err := containers.Run(ctx, container.RunOptions{
		Name:          t.ContainerName,
		Image:         image,
		HostNetwork:   true,
		Env:           []string{fmt.Sprintf("PORT=%d", t.CanonicalPort)},
		EnvFile:       envFile,
		Mounts:        mounts,
		RestartAlways: true,
	}); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("restoring traffic to port %d", t.CanonicalPort)
	if err := proxies.PointTo(ctx, t, t.CanonicalPort); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	term.Step("removing candidate %s", candidate)
	if err := containers.StopAndRemove(ctx, candidate); err != nil {
		return finish(attempt, types.OutcomeError, err)
	}

	time.Sleep(d.settle)

	status, err := containers.Status(ctx, t.ContainerName)
	if err != nil {
		return finish(attempt, types.OutcomeError, err)
	}
	if status == "" {
		d.dumpLogs(ctx, containers, t.ContainerName)
		return finish(attempt, types.OutcomeError,
			fmt.Errorf("target %s (image %s): %w", t.Name, image, ErrCanonicalDown))
	}

	term.Success("zero-downtime deployment of %s complete (%s)", t.Name, image)
	return finish(attempt, types.OutcomeSuccess, nil)
}

// waitHealthy polls the health path on the given port from the remote host,
// once per interval, until it responds with success or the timeout in
// seconds is exhausted. Returns the elapsed whole seconds on success.
func (d *Deployer) waitHealthy(ctx context.Context, conn Conn, port int, path string, timeoutSec int) (int, error) {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	probe := fmt.Sprintf("curl -sf -o /dev/null --max-time 2 http://localhost:%d%s", port, path)

	attempts := int(time.Duration(timeoutSec) * time.Second / d.healthInterval)
	if attempts < 1 {
		attempts = 1
	}

	start := time.Now()
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		res, err := conn.Run(ctx, probe)
		if err != nil {
			return 0, err
		}
		if res.ExitCode == 0 {
			return int(time.Since(start).Seconds()), nil
		}

		if i < attempts-1 {
			time.Sleep(d.healthInterval)
		}
	}
	return 0, fmt.Errorf("no successful response within %ds", timeoutSec)
}
