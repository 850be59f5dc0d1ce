package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/nodalmesh/kvstore/rpc/common"
)

// startEchoServer binds a TCP server transport to an ephemeral loopback
// port and answers every request with echoFn(req), returning the bound
// address for clients to dial.
func startEchoServer(t *testing.T, echoFn func(req []byte) []byte) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a loopback port: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(req []byte) []byte {
		return echoFn(req)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(common.ServerConfig{Endpoint: addr, TimeoutSecond: 5})
	}()

	select {
	case err := <-errCh:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	return addr
}

func TestTCPTransportRoundTrip(t *testing.T) {
	addr := startEchoServer(t, func(req []byte) []byte {
		out := make([]byte, len(req))
		copy(out, req)
		for i := range out {
			if out[i] >= 'a' && out[i] <= 'z' {
				out[i] -= 'a' - 'A'
			}
		}
		return out
	})

	client := NewTCPClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:              []string{addr},
		TimeoutSecond:          2,
		RetryCount:             1,
		ConnectionsPerEndpoint: 1,
	}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Send([]byte("hello"))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if string(resp) != "HELLO" {
		t.Fatalf("expected HELLO, got %q", resp)
	}
}

func TestTCPTransportConcurrentRequests(t *testing.T) {
	addr := startEchoServer(t, func(req []byte) []byte {
		return req
	})

	client := NewTCPClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:              []string{addr},
		TimeoutSecond:          2,
		RetryCount:             1,
		ConnectionsPerEndpoint: 2,
	}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	const n = 20
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := client.Send([]byte("ping"))
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent send failed: %v", err)
		}
	}
}

func TestTCPTransportTimeout(t *testing.T) {
	addr := startEchoServer(t, func(req []byte) []byte {
		time.Sleep(2 * time.Second)
		return req
	})

	client := NewTCPClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:              []string{addr},
		TimeoutSecond:          1,
		RetryCount:             1,
		ConnectionsPerEndpoint: 1,
	}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if _, err := client.Send([]byte("ping")); err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
}
