package client

import (
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/transport"
)

// NewAdminClient creates an RPC client exposing every lib/store.RpcSurface
// operation, for operator tooling (cmd/kvctl) rather than peer-to-peer
// sync traffic -- the RPC counterpart of peerclient.Client's NewPeerClient.
func NewAdminClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*AdminClient, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &AdminClient{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// AdminClient is an RPC client for the RpcSurface operations an operator
// (rather than a peer) issues: get, dump_filtered, dump_hashes, set,
// get/add/del_peers and get_area_summary.
type AdminClient struct {
	rpcClientAdapter
}

func (c *AdminClient) Get(area string, keys []string) (kv.Publication, error) {
	req := common.NewGetRequest(area, keys)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return kv.Publication{}, err
	}
	return resp.ToPublication(), nil
}

func (c *AdminClient) DumpFiltered(area string, filter kv.Filter) (kv.Publication, error) {
	req := common.NewDumpFilteredRequest(area, filter, nil)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return kv.Publication{}, err
	}
	return resp.ToPublication(), nil
}

func (c *AdminClient) DumpHashes(area string, filter kv.Filter) (kv.Publication, error) {
	req := common.NewDumpHashesRequest(area, filter)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return kv.Publication{}, err
	}
	return resp.ToPublication(), nil
}

func (c *AdminClient) Set(area string, pub kv.Publication) error {
	pub.Area = area
	req := common.NewSetRequest(pub)
	_, err := invokeRPCRequest(req, c.transport, c.serializer)
	return err
}

func (c *AdminClient) GetPeers(area string) (map[string]kv.PeerSpec, error) {
	req := common.NewGetPeersRequest(area)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	return resp.PeerMap, nil
}

func (c *AdminClient) AddPeers(area string, peers map[string]kv.PeerSpec) error {
	req := common.NewAddPeersRequest(area, peers)
	_, err := invokeRPCRequest(req, c.transport, c.serializer)
	return err
}

func (c *AdminClient) DelPeers(area string, names []string) error {
	req := common.NewDelPeersRequest(area, names)
	_, err := invokeRPCRequest(req, c.transport, c.serializer)
	return err
}

func (c *AdminClient) GetAreaSummary(areas []string) ([]store.AreaSummary, error) {
	req := common.NewGetAreaSummaryRequest(areas)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	out := make([]store.AreaSummary, len(resp.Summaries))
	for i, s := range resp.Summaries {
		out[i] = store.AreaSummary{
			Area:       s.Area,
			PeerMap:    s.PeerMap,
			KeyCount:   s.KeyCount,
			TotalBytes: s.TotalBytes,
		}
	}
	return out, nil
}

func (c *AdminClient) Close() error {
	return c.transport.Close()
}
