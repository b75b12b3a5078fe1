/*
Package deploy contains the deployment orchestrator.

Two strategies exist. Direct is the simple path: upload, pull, stop and
remove the current container, recreate it, verify. BlueGreen is the
zero-downtime path, a linear state machine over blocking remote commands:

	Idle → CandidateStarting → HealthChecking →
	    HealthFailed (abort) | TrafficSwitched →
	IncumbentRetiring → CanonicalRecreating → TrafficRestored →
	CandidateCleanup → Done

Contracts the machine guarantees:

  - The proxy for the target must already be running; its absence is a
    precondition failure (ErrProxyNotRunning) before anything is mutated.
  - A stale candidate from an earlier failed attempt is removed, never
    reused, before the new candidate starts.
  - The health check is the only recoverable failure. On timeout the
    candidate's logs are dumped, the candidate is removed, and the
    incumbent keeps serving on the canonical port with the routing fact
    untouched (ErrHealthCheckFailed).
  - Once traffic has switched, failures are fatal and fail-fast. The
    post-switch verification (canonical container running at the end) has
    no automatic recovery: the previous good instance no longer exists at
    that point, so ErrCanonicalDown deliberately demands operator
    intervention instead of masking the gap with a retry.
  - Only the candidate created canonically (on the canonical port, with
    restart-always) carries the durable restart policy; the alternate-port
    candidate is transitional.

Attempts against different targets share no state and may run
concurrently; attempts against the same target must be serialized by the
caller.
*/
package deploy
