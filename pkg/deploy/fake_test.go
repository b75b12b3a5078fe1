package deploy

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	m.Run()
}

// fakeConn scripts remote command responses by substring match, first
// matching rule wins. A rule with times > 0 is consumed after that many
// matches, which lets a health check fail before it succeeds.
type fakeConn struct {
	mu       sync.Mutex
	commands []string
	stdins   []string
	uploads  []string
	rules    []rule
	closed   bool
}

type rule struct {
	contains string
	output   string
	exit     int
	err      error
	times    int // 0 means unlimited
}

func (f *fakeConn) Run(_ context.Context, command string) (sshexec.Result, error) {
	return f.RunInput(context.Background(), "", command)
}

func (f *fakeConn) RunInput(_ context.Context, stdin string, command string) (sshexec.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	f.stdins = append(f.stdins, stdin)

	for i := range f.rules {
		r := &f.rules[i]
		if r.times < 0 || !strings.Contains(command, r.contains) {
			continue
		}
		if r.times > 0 {
			r.times--
			if r.times == 0 {
				r.times = -1
			}
		}
		return sshexec.Result{Output: r.output, ExitCode: r.exit}, r.err
	}
	return sshexec.Result{}, nil
}

func (f *fakeConn) CheckConnectivity(ctx context.Context) error {
	_, err := f.Run(ctx, "true")
	return err
}

func (f *fakeConn) Upload(localDir, remoteDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, localDir+" -> "+remoteDir)
	return nil
}

func (f *fakeConn) UploadFile(local, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, local+" -> "+remote)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// indexOf returns the position of the first command containing substr, -1
// if none did.
func (f *fakeConn) indexOf(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.commands {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

func (f *fakeConn) ran(substr string) bool {
	return f.indexOf(substr) != -1
}

func (f *fakeConn) countOf(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

func dialTo(conn *fakeConn) DialFunc {
	return func(types.Target) (Conn, error) {
		return conn, nil
	}
}

// assertOrder fails unless each named step appears and they appear in the
// given order.
func assertOrder(t *testing.T, conn *fakeConn, steps []string) {
	t.Helper()
	last := -1
	for _, step := range steps {
		idx := conn.indexOf(step)
		if idx == -1 {
			t.Fatalf("step %q never ran; commands: %v", step, conn.commands)
		}
		if idx <= last {
			t.Fatalf("step %q ran out of order (index %d after %d)", step, idx, last)
		}
		last = idx
	}
}
