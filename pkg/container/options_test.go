package container

import (
	"strings"
	"testing"

	"github.com/bluetide-io/bluetide/pkg/types"
)

func TestRunOptionsCommand(t *testing.T) {
	tests := []struct {
		name string
		opts RunOptions
		want string
	}{
		{
			name: "host network with restart policy",
			opts: RunOptions{
				Name:          "app1",
				Image:         "team/app:v1",
				HostNetwork:   true,
				RestartAlways: true,
				Detach:        true,
			},
			want: "docker run -d --name app1 --network host --restart always team/app:v1",
		},
		{
			name: "explicit port mapping",
			opts: RunOptions{
				Name:   "app1",
				Image:  "team/app:v1",
				Ports:  []PortBinding{{Host: 3000, Container: 3000}},
				Detach: true,
			},
			want: "docker run -d --name app1 -p 3000:3000 team/app:v1",
		},
		{
			name: "env file and mounts",
			opts: RunOptions{
				Name:    "app1",
				Image:   "team/app:v1",
				EnvFile: "/var/app/app1/.env",
				Mounts: []types.Mount{
					{Source: "/var/app/app1/config.json", Target: "/app/config.json", ReadOnly: true},
				},
				Detach: true,
			},
			want: "docker run -d --name app1 --env-file /var/app/app1/.env -v /var/app/app1/config.json:/app/config.json:ro team/app:v1",
		},
		{
			name: "env pairs",
			opts: RunOptions{
				Name:   "app1-blue",
				Image:  "team/app:v1",
				Env:    []string{"PORT=3001"},
				Detach: true,
			},
			want: "docker run -d --name app1-blue -e PORT=3001 team/app:v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Command()
			if got != tt.want {
				t.Errorf("Command() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestShellQuote verifies config values cannot escape their argument
// position on the remote shell.
func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"app1", "app1"},
		{"", "''"},
		{"has space", "'has space'"},
		{"$(reboot)", "'$(reboot)'"},
		{"a;b", "'a;b'"},
		{"it's", `'it'\''s'`},
	}

	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRunOptionsCommandQuotesHostileValues(t *testing.T) {
	opts := RunOptions{
		Name:   "app1",
		Image:  "team/app:v1",
		Env:    []string{"TOKEN=abc; rm -rf /"},
		Detach: true,
	}
	cmd := opts.Command()
	if strings.Contains(cmd, "-e TOKEN=abc; rm") {
		t.Fatalf("hostile env value not quoted: %s", cmd)
	}
	if !strings.Contains(cmd, `'TOKEN=abc; rm -rf /'`) {
		t.Errorf("expected quoted env value in %q", cmd)
	}
}
