package unix

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nodalmesh/kvstore/rpc/common"
)

func TestUnixTransportRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "kvstore.sock")

	srv := NewUnixDefaultServerTransport()
	srv.RegisterHandler(func(req []byte) []byte {
		out := make([]byte, len(req))
		copy(out, req)
		for i := range out {
			out[i]++
		}
		return out
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(common.ServerConfig{Endpoint: socketPath, TimeoutSecond: 5})
	}()

	select {
	case err := <-errCh:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	client := NewUnixClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:              []string{socketPath},
		TimeoutSecond:          2,
		RetryCount:             1,
		ConnectionsPerEndpoint: 1,
	}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Send([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	want := []byte{2, 3, 4}
	for i := range want {
		if resp[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, resp)
		}
	}
}
