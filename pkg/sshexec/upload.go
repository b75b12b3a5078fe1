package sshexec

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// Upload recursively copies a local directory, dotfiles included, to a
// remote path. Re-running overwrites existing files, so the operation is
// idempotent.
func (c *Client) Upload(localDir, remoteDir string) error {
	client, err := sftp.NewClient(c.conn)
	if err != nil {
		return fmt.Errorf("failed to open sftp session on %s: %w", c.host, err)
	}
	defer client.Close()

	if err := client.MkdirAll(remoteDir); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", remoteDir, err)
	}

	return filepath.WalkDir(localDir, func(local string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localDir, local)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		remote := path.Join(remoteDir, filepath.ToSlash(rel))

		if d.IsDir() {
			if err := client.MkdirAll(remote); err != nil {
				return fmt.Errorf("failed to create remote directory %s: %w", remote, err)
			}
			return nil
		}

		return c.uploadFile(client, local, remote)
	})
}

// UploadFile copies a single local file to a remote path, creating parent
// directories as needed.
func (c *Client) UploadFile(local, remote string) error {
	client, err := sftp.NewClient(c.conn)
	if err != nil {
		return fmt.Errorf("failed to open sftp session on %s: %w", c.host, err)
	}
	defer client.Close()

	if err := client.MkdirAll(path.Dir(remote)); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path.Dir(remote), err)
	}

	return c.uploadFile(client, local, remote)
}

func (c *Client) uploadFile(client *sftp.Client, local, remote string) error {
	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer src.Close()

	dst, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remote, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remote, err)
	}

	// Carry the local mode across so env files keep restrictive permissions
	if info, err := src.Stat(); err == nil {
		_ = client.Chmod(remote, info.Mode().Perm())
	}

	return nil
}
