package client

import (
	"context"
	"testing"

	"github.com/nodalmesh/kvstore/lib/area"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/server"
)

// fakeTransport dispatches Send directly into a server-side adapter/store
// pair in-process, without touching the network, matching lib/peerclient's
// MockClient approach for testing peerclient.Client implementations.
type fakeTransport struct {
	store      *store.Store
	adapter    server.IRPCServerAdapter
	serializer serializer.IRPCSerializer
	closed     bool
}

func newFakeTransport(t *testing.T) *fakeTransport {
	t.Helper()
	cfg := area.DefaultConfig("1", "node1")
	cfg.KeyTTLMs = 10000
	s := store.New("node1", []area.Config{cfg})
	s.Start()
	t.Cleanup(s.Stop)

	return &fakeTransport{
		store:      s,
		adapter:    server.NewStoreServerAdapter(),
		serializer: serializer.NewJSONSerializer(),
	}
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }

func (f *fakeTransport) Send(req []byte) ([]byte, error) {
	var msg common.Message
	if err := f.serializer.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	resp := f.adapter.Handle(&msg, f.store)
	return f.serializer.Serialize(*resp)
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestPeerClientGetKVAndSetKV(t *testing.T) {
	ft := newFakeTransport(t)
	pc, err := NewPeerClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewPeerClient: %v", err)
	}
	defer pc.Close()

	pub := kv.Publication{
		KeyVals: map[string]kv.VersionedValue{
			"prefix:a": {Version: 1, OriginatorID: "node1", Payload: []byte("v1"), TTLMs: -1},
		},
	}
	if err := pc.SetKV(context.Background(), "1", pub); err != nil {
		t.Fatalf("SetKV: %v", err)
	}

	got, err := pc.GetKV(context.Background(), "1", kv.Filter{}, map[string]kv.VersionedValue{})
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if _, ok := got.KeyVals["prefix:a"]; !ok {
		t.Fatalf("expected prefix:a in dump, got %+v", got.KeyVals)
	}
}

func TestPeerClientGetStatus(t *testing.T) {
	ft := newFakeTransport(t)
	pc, err := NewPeerClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewPeerClient: %v", err)
	}
	defer pc.Close()

	if err := pc.GetStatus(context.Background()); err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
}

func TestPeerClientRespectsCanceledContext(t *testing.T) {
	ft := newFakeTransport(t)
	pc, err := NewPeerClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewPeerClient: %v", err)
	}
	defer pc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pc.GetKV(ctx, "1", kv.Filter{}, nil); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestPeerClientClose(t *testing.T) {
	ft := newFakeTransport(t)
	pc, err := NewPeerClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewPeerClient: %v", err)
	}
	if err := pc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ft.closed {
		t.Fatal("expected underlying transport to be closed")
	}
}

func TestAdminClientSetGetDumpPeers(t *testing.T) {
	ft := newFakeTransport(t)
	ac, err := NewAdminClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewAdminClient: %v", err)
	}
	defer ac.Close()

	pub := kv.Publication{
		KeyVals: map[string]kv.VersionedValue{
			"k1": {Version: 1, OriginatorID: "kvctl", Payload: []byte("v1"), TTLMs: -1},
		},
	}
	if err := ac.Set("1", pub); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := ac.Get("1", []string{"k1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got.KeyVals["k1"]; !ok {
		t.Fatalf("expected k1, got %+v", got.KeyVals)
	}

	dumped, err := ac.DumpFiltered("1", kv.Filter{})
	if err != nil {
		t.Fatalf("DumpFiltered: %v", err)
	}
	if _, ok := dumped.KeyVals["k1"]; !ok {
		t.Fatalf("expected k1 in dump, got %+v", dumped.KeyVals)
	}

	hashes, err := ac.DumpHashes("1", kv.Filter{})
	if err != nil {
		t.Fatalf("DumpHashes: %v", err)
	}
	vv, ok := hashes.KeyVals["k1"]
	if !ok {
		t.Fatalf("expected k1 in hash dump, got %+v", hashes.KeyVals)
	}
	if vv.ContentHash == nil {
		t.Fatal("expected a populated content hash")
	}

	if err := ac.AddPeers("1", map[string]kv.PeerSpec{"peerA": {PeerAddress: "127.0.0.1", ControlPort: 9000}}); err != nil {
		t.Fatalf("AddPeers: %v", err)
	}

	peers, err := ac.GetPeers("1")
	if err != nil {
		t.Fatalf("GetPeers: %v", err)
	}
	if _, ok := peers["peerA"]; !ok {
		t.Fatalf("expected peerA registered, got %+v", peers)
	}

	if err := ac.DelPeers("1", []string{"peerA"}); err != nil {
		t.Fatalf("DelPeers: %v", err)
	}
	peers, err = ac.GetPeers("1")
	if err != nil {
		t.Fatalf("GetPeers after delete: %v", err)
	}
	if _, ok := peers["peerA"]; ok {
		t.Fatalf("expected peerA removed, got %+v", peers)
	}

	summaries, err := ac.GetAreaSummary([]string{"1"})
	if err != nil {
		t.Fatalf("GetAreaSummary: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Area != "1" {
		t.Fatalf("expected one summary for area 1, got %+v", summaries)
	}
}

func TestAdminClientErrorPropagation(t *testing.T) {
	ft := newFakeTransport(t)
	ac, err := NewAdminClient(common.ClientConfig{Endpoints: []string{"fake"}}, ft, ft.serializer)
	if err != nil {
		t.Fatalf("NewAdminClient: %v", err)
	}
	defer ac.Close()

	if _, err := ac.Get("does-not-exist", []string{"k"}); err == nil {
		t.Fatal("expected an error for an unconfigured area")
	}
}
