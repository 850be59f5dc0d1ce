package client

import (
	"fmt"

	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/transport"
)

var Logger = logging.Get("rpc/client")

// rpcClientAdapter stores the data needed by an RPC-backed peerclient.Client.
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest serializes req, sends it over transport, and validates
// the response: an error response or a mismatched MsgType is surfaced as
// an error rather than returned to the caller.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("rpc peer client: error deserializing response: %s", err)
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, fmt.Errorf("rpc peer client: peer returned error: %s", resp.Err)
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc peer client: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
