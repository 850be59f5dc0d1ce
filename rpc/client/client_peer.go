package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/peerclient"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/transport"
)

// NewPeerClient creates a peerclient.Client backed by the given transport
// and serializer. It connects the transport immediately, mirroring the
// teacher's eager-connect NewRPCStore.
func NewPeerClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (peerclient.Client, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcPeerClient{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcPeerClient struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// peerclient.Client methods (docu see lib/peerclient/interface.go)
// --------------------------------------------------------------------------

// GetKV always issues dump_filtered; keyValHashes nil vs populated decides
// the server-side plain-dump vs full-sync-response behavior (spec §4.4).
func (c *rpcPeerClient) GetKV(ctx context.Context, area string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) (kv.Publication, error) {
	if err := ctx.Err(); err != nil {
		return kv.Publication{}, err
	}
	req := common.NewDumpFilteredRequest(area, filter, keyValHashes)
	resp, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		return kv.Publication{}, err
	}
	return resp.ToPublication(), nil
}

func (c *rpcPeerClient) SetKV(ctx context.Context, area string, pub kv.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pub.Area = area
	req := common.NewSetRequest(pub)

	correlationID := uuid.NewString()
	Logger.WithField("correlation_id", correlationID).WithField("area", area).Debug("sending flood set_kv")

	_, err := invokeRPCRequest(req, c.transport, c.serializer)
	if err != nil {
		Logger.WithError(err).WithField("correlation_id", correlationID).WithField("area", area).Warn("flood set_kv failed")
	}
	return err
}

func (c *rpcPeerClient) GetStatus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := common.NewStatusRequest()
	_, err := invokeRPCRequest(req, c.transport, c.serializer)
	return err
}

func (c *rpcPeerClient) Close() error {
	return c.transport.Close()
}
