package server

import (
	"fmt"

	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/common"
)

// NewStoreServerAdapter creates the adapter that dispatches RpcSurface
// requests (spec.md §4.8) against a Store.
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, s *store.Store) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTGet:
		pub, err := s.Get(req.Area, req.Keys)
		return common.NewGetResponse(pub, err)

	case common.MsgTDumpFiltered:
		pub, err := s.DumpFiltered(req.Area, req.ToFilter(), req.KeyValHashes)
		return common.NewDumpFilteredResponse(pub, err)

	case common.MsgTDumpHashes:
		pub, err := s.DumpHashes(req.Area, req.ToFilter())
		return common.NewDumpHashesResponse(pub, err)

	case common.MsgTSet:
		err := s.Set(req.Area, req.ToPublication(), req.SenderID)
		return common.NewSetResponse(err)

	case common.MsgTGetPeers:
		peers, err := s.GetPeers(req.Area)
		return common.NewGetPeersResponse(peers, err)

	case common.MsgTAddPeers:
		err := s.AddPeers(req.Area, req.PeerMap)
		return common.NewAddPeersResponse(err)

	case common.MsgTDelPeers:
		err := s.DelPeers(req.Area, req.PeerNames)
		return common.NewDelPeersResponse(err)

	case common.MsgTGetAreaSummary:
		summaries, err := s.GetAreaSummary(req.Areas)
		return common.NewGetAreaSummaryResponse(toWireSummaries(summaries), err)

	case common.MsgTGetStatus:
		return common.NewStatusResponse(nil)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("rpc server adapter: unsupported message type: %s", req.MsgType),
		)
	}
}

func toWireSummaries(in []store.AreaSummary) []common.AreaSummary {
	if in == nil {
		return nil
	}
	out := make([]common.AreaSummary, len(in))
	for i, s := range in {
		out[i] = common.AreaSummary{
			Area:       s.Area,
			PeerMap:    s.PeerMap,
			KeyCount:   s.KeyCount,
			TotalBytes: s.TotalBytes,
		}
	}
	return out
}
