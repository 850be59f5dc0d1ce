package store

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nodalmesh/kvstore/lib/area"
)

// ErrorKind enumerates the taxonomy of spec.md §7, a typed {Code, Msg}
// error shape generalized from a plain RetCode enum.
type ErrorKind int

const (
	ErrInvalidArea ErrorKind = iota
	ErrInvalidPayload
	ErrPeerTransportError
	ErrStaleResponse
	ErrFilterRejected
	ErrLoopDetected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidArea:
		return "InvalidArea"
	case ErrInvalidPayload:
		return "InvalidPayload"
	case ErrPeerTransportError:
		return "PeerTransportError"
	case ErrStaleResponse:
		return "StaleResponse"
	case ErrFilterRejected:
		return "FilterRejected"
	case ErrLoopDetected:
		return "LoopDetected"
	default:
		return "Unknown"
	}
}

// KvStoreError is the error type surfaced at the RPC boundary (spec.md
// §6.2: "may raise KvStoreError{message}"). PeerTransportError,
// StaleResponse, FilterRejected and LoopDetected are never returned from
// an RPC method -- they're recovered locally or silent -- but the kind
// is kept here so the same taxonomy covers internal telemetry too.
type KvStoreError struct {
	Kind  ErrorKind
	Msg   string
	cause error // set by wrapError; nil for a locally-constructed error
}

func (e *KvStoreError) Error() string {
	return fmt.Sprintf("KvStoreError(%s): %s", e.Kind, e.Msg)
}

// Unwrap exposes the underlying area-package error wrapError preserved, so
// errors.Is/errors.As can still reach it through the RPC boundary.
func (e *KvStoreError) Unwrap() error {
	return e.cause
}

func newError(kind ErrorKind, msg string) *KvStoreError {
	return &KvStoreError{Kind: kind, Msg: msg}
}

// wrapError builds a KvStoreError that still unwraps (via errors.Is/As) to
// the original area-package sentinel, using github.com/pkg/errors.Wrapf so
// the RPC boundary never discards the underlying cause.
func wrapError(kind ErrorKind, err error) error {
	return &KvStoreError{Kind: kind, Msg: err.Error(), cause: errors.Wrapf(err, "%s", kind)}
}

// classifyAreaError maps an error returned by an area.Db method into the
// RPC-visible KvStoreError taxonomy.
func classifyAreaError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, area.ErrInvalidPayload):
		return wrapError(ErrInvalidPayload, err)
	default:
		return wrapError(ErrInvalidPayload, err)
	}
}
