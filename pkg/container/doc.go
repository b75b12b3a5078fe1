/*
Package container drives the docker CLI on a remote host: create, inspect,
stop and remove a single named container instance.

All operations go through the sshexec.Runner primitive. Command assembly is
typed (RunOptions) rather than string-templated, and every interpolated
value is shell-quoted, so configuration values cannot alter the shape of
the remote command.

Contract highlights:

  - StopAndRemove is idempotent: a missing container is not an error.
  - Status returns the empty string for "not running"; callers use that as
    the post-creation verification gate.
  - NormalizeImageRef owns the tag-resolution rule shared by every
    deployment path (strip embedded tag, append requested tag, default
    "latest").
*/
package container
