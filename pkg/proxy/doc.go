/*
Package proxy manages the Caddy reverse proxy on a target host.

The proxy owns exactly one mutable routing fact per target: the backend
port its reverse_proxy directive forwards to. That fact lives as a line in
the generated Caddyfile under /var/app/caddy-<target>/ and only becomes
effective after an explicit reload, so the Controller always performs the
edit and the reload as a pair (PointTo). A reload failure after a
successful edit leaves disk and live state inconsistent and is surfaced as
ErrReloadFailed rather than ignored.

EnsureRunning is the setup path: it creates the persistent state
directories (Caddy keeps its ACME certificates under data/), renders the
Caddyfile — a TLS virtual host when the target has a domain, a plain :80
listener otherwise — and recreates the proxy container from scratch so a
configuration change never partially applies to a running instance.
*/
package proxy
