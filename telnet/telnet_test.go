package telnet

import (
	"net"
	"testing"
	"time"
)

func dialBridge(t *testing.T, b *Bridge) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", b.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial bridge: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestBridgeStatusBeforeConnect(t *testing.T) {
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer b.Close()

	if st := b.Status(); st.DataReady {
		t.Error("DataReady should be false with no client connected")
	}
	if err := b.Send(0x41); err != nil {
		t.Errorf("Send with no client should be a silent no-op, got %v", err)
	}
	if _, ok := b.Receive(); ok {
		t.Error("Receive should report nothing buffered before any client connects")
	}
}

func TestBridgeReceivesClientBytes(t *testing.T) {
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer b.Close()

	conn := dialBridge(t, b)
	defer conn.Close()

	if _, err := conn.Write([]byte("AB")); err != nil {
		t.Fatalf("client write: %v", err)
	}
	waitFor(t, func() bool { return b.Status().DataReady })

	got, ok := b.Receive()
	if !ok || got != 'A' {
		t.Fatalf("Receive = %v, %v; want 'A', true", got, ok)
	}
	got, ok = b.Receive()
	if !ok || got != 'B' {
		t.Fatalf("Receive = %v, %v; want 'B', true", got, ok)
	}
	if _, ok := b.Receive(); ok {
		t.Error("Receive should drain empty after both bytes popped")
	}
}

func TestBridgeSendReachesClient(t *testing.T) {
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer b.Close()

	conn := dialBridge(t, b)
	defer conn.Close()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	})

	if err := b.Send('Z'); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	if err != nil || n != 1 || buf[0] != 'Z' {
		t.Fatalf("client read = %q, %v, %v; want 'Z'", buf[:n], n, err)
	}
}

func TestBridgeReconnectReplacesClient(t *testing.T) {
	b, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer b.Close()

	first := dialBridge(t, b)
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil
	})

	second := dialBridge(t, b)
	defer second.Close()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.conn != nil && b.conn.RemoteAddr().String() != ""
	})

	// The first connection should have been closed when the second
	// connected; confirm by reading from it (expect EOF, not a hang).
	first.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := first.Read(buf); err == nil {
		t.Error("old connection should have been closed on reconnect")
	}
}
