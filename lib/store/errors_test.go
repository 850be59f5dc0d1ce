package store

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/nodalmesh/kvstore/lib/area"
)

func TestClassifyAreaErrorWrapsCause(t *testing.T) {
	got := classifyAreaError(area.ErrInvalidPayload)
	if got == nil {
		t.Fatal("expected a non-nil KvStoreError")
	}
	if !errors.Is(got, area.ErrInvalidPayload) {
		t.Fatalf("expected errors.Is to reach area.ErrInvalidPayload through %v", got)
	}
	kvErr, ok := got.(*KvStoreError)
	if !ok {
		t.Fatalf("expected *KvStoreError, got %T", got)
	}
	if kvErr.Kind != ErrInvalidPayload {
		t.Fatalf("expected ErrInvalidPayload kind, got %v", kvErr.Kind)
	}
}

func TestClassifyAreaErrorNil(t *testing.T) {
	if err := classifyAreaError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
