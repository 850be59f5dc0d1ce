package peerclient

import (
	"context"
	"sync"

	"github.com/nodalmesh/kvstore/lib/kv"
)

// MockClient is the in-process test double spec §9 asks for: "enabling
// the same test suite to run against an in-process mock transport."
// It never goes over a real socket: GetKV and SetKV run the injected
// GetKVFunc/SetKVFunc (or a built-in default), two plain function fields
// so tests can inject whatever behavior (including simulated failures,
// or a call into another node's Db) they need.
type MockClient struct {
	mu sync.Mutex

	// GetKVFunc and SetKVFunc back GetKV/SetKV. A nil func returns a
	// zero-value result with no error.
	GetKVFunc func(ctx context.Context, area string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) (kv.Publication, error)
	SetKVFunc func(ctx context.Context, area string, pub kv.Publication) error

	// StatusErr, if non-nil, is returned by every GetStatus call.
	StatusErr error

	closed bool

	// SetKVCalls records every Publication passed to SetKV, for test
	// assertions on flood fan-out.
	SetKVCalls []kv.Publication
}

// NewMockClient creates a mock with no injected behavior.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetKV(ctx context.Context, area string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) (kv.Publication, error) {
	if m.GetKVFunc != nil {
		return m.GetKVFunc(ctx, area, filter, keyValHashes)
	}
	return kv.Publication{Area: area}, nil
}

func (m *MockClient) SetKV(ctx context.Context, area string, pub kv.Publication) error {
	m.mu.Lock()
	m.SetKVCalls = append(m.SetKVCalls, pub)
	m.mu.Unlock()

	if m.SetKVFunc != nil {
		return m.SetKVFunc(ctx, area, pub)
	}
	return nil
}

func (m *MockClient) GetStatus(ctx context.Context) error {
	return m.StatusErr
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Client = (*MockClient)(nil)
