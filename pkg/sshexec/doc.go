/*
Package sshexec provides remote command execution and file transfer for
deployment targets.

The Runner interface is the single I/O primitive of bluetide: the container
lifecycle manager, the proxy controller and the deployer all mutate remote
state exclusively through it. The concrete Client implementation runs each
command in its own SSH session and returns combined output plus the remote
exit status; transport failures are errors, non-zero exit codes are not.

File transfer uses SFTP over the same connection. Upload copies a directory
tree recursively (dotfiles included) and overwrites on re-run, matching the
idempotent contract the deployer relies on.

Credentials for registry login are passed via RunInput so they reach the
remote command's stdin without appearing in argv or log output.
*/
package sshexec
