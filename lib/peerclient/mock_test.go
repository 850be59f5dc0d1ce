package peerclient

import (
	"context"
	"errors"
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
)

func TestMockClientDefaultBehavior(t *testing.T) {
	m := NewMockClient()

	pub, err := m.GetKV(context.Background(), "1", kv.Filter{}, nil)
	if err != nil || pub.Area != "1" {
		t.Fatalf("expected zero-value publication for area 1, got %+v err=%v", pub, err)
	}

	if err := m.SetKV(context.Background(), "1", kv.Publication{Area: "1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(m.SetKVCalls) != 1 {
		t.Fatalf("expected SetKV call to be recorded, got %d", len(m.SetKVCalls))
	}

	if err := m.GetStatus(context.Background()); err != nil {
		t.Fatalf("expected no status error, got %v", err)
	}
}

func TestMockClientInjectedFailure(t *testing.T) {
	wantErr := errors.New("boom")
	m := NewMockClient()
	m.SetKVFunc = func(ctx context.Context, area string, pub kv.Publication) error {
		return wantErr
	}

	if err := m.SetKV(context.Background(), "1", kv.Publication{}); err != wantErr {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestMockClientClose(t *testing.T) {
	m := NewMockClient()
	if m.Closed() {
		t.Fatal("expected fresh mock to not be closed")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error on close: %v", err)
	}
	if !m.Closed() {
		t.Fatal("expected mock to be closed")
	}
}
