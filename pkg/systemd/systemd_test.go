package systemd

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	logx "moodybell/pkg/logx"
)

func TestDisabledIsNoop(t *testing.T) {
	n := New(false, logx.Nop())
	if n.Ready() || n.Stopping() {
		t.Fatalf("disabled notifier sent a state")
	}
	if err := n.Watchdog(context.Background()); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
}

func TestReadySentToSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram unsupported: %v", err)
	}
	defer conn.Close()
	t.Setenv("NOTIFY_SOCKET", sock)

	n := New(true, logx.Nop())
	if !n.Ready() {
		t.Fatalf("Ready not sent")
	}
	buf := make([]byte, 64)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	k, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:k]); got != "READY=1" {
		t.Fatalf("state = %q", got)
	}
}

func TestWatchdogUnconfiguredReturns(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	n := New(true, logx.Nop())
	done := make(chan error, 1)
	go func() { done <- n.Watchdog(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watchdog: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Watchdog blocked without WATCHDOG_USEC")
	}
}
