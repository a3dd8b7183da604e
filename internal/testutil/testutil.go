// Package testutil provides testing utilities for playbill tests.
package testutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qaznotquaz/aLexA/internal/envelope"
)

// Host is the loopback address tests listen and dial on.
const Host = "127.0.0.1"

// FreePorts reserves n distinct loopback ports. The listeners are closed
// before returning, so another process could in principle take a port
// before the test binds it again.
func FreePorts(t *testing.T, n int) []int {
	t.Helper()

	listeners := make([]net.Listener, 0, n)
	defer func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}()

	ports := make([]int, 0, n)
	for range n {
		l, err := net.Listen("tcp", net.JoinHostPort(Host, "0"))
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		listeners = append(listeners, l)
		ports = append(ports, l.Addr().(*net.TCPAddr).Port)
	}
	return ports
}

// Cast returns one identity per name, each on its own free port.
func Cast(t *testing.T, names ...string) []envelope.Identity {
	t.Helper()

	ports := FreePorts(t, len(names))
	cast := make([]envelope.Identity, len(names))
	for i, name := range names {
		cast[i] = envelope.Identity{Name: name, Port: ports[i]}
	}
	return cast
}

// Ports extracts the ports of cast in order.
func Ports(cast []envelope.Identity) []int {
	ports := make([]int, len(cast))
	for i, id := range cast {
		ports[i] = id.Port
	}
	return ports
}

// WriteFile writes content to dir/rel, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", rel, err)
	}
	return path
}

// WriteScript stores a script document under the episode/act layout the
// loader expects and returns the scripts directory.
func WriteScript(t *testing.T, episode, act int, ext, content string) string {
	t.Helper()

	dir := t.TempDir()
	WriteFile(t, dir, fmt.Sprintf("ep%d/ep%dact%d.%s", episode, episode, act, ext), content)
	return dir
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
