// Package server implements the RPC server for the gossip key-value store.
// It hosts a single Store process and adapts incoming wire requests into
// calls against its RpcSurface (spec.md §4.8), returning the result as a
// response Message.
//
// The package focuses on:
//   - Server-side RPC request handling for every RpcSurface operation
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Pluggable transport and serializer backends
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes incoming requests against a Store.
//
//   - NewStoreServerAdapter: Factory function creating the adapter that
//     dispatches on MessageType and calls the matching Store method
//     (Get, DumpFiltered, DumpHashes, Set, GetPeers, AddPeers, DelPeers,
//     GetAreaSummary).
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  NodeName: "node1",
//	  Areas: []area.Config{{Area: "1"}},
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently; the
//	Store itself serializes area-local mutations through its per-area executor.
//	The Serve method is not thread-safe and should be called only once.
package server
