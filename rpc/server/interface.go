package server

import (
	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and the Store it's addressed to as parameters.
	// It returns a Message as a response
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, s *store.Store) (resp *common.Message)
}
