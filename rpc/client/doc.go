// Package client implements an RPC-backed peerclient.Client for the gossip
// key-value store. It lets an area's SyncEngine and Flooder talk to a peer
// node over the wire exactly as they would to an in-process peer.
//
// The package focuses on:
//   - A peerclient.Client implementation over the rpc/transport and
//     rpc/serializer stack
//   - Translating RPC-level errors into the plain errors peerclient.Client
//     callers expect
//
// Key Components:
//
//   - NewPeerClient: Factory function that creates a peerclient.Client,
//     connecting the given transport eagerly.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:              []string{"peer-a:8080"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	peer, _ := client.NewPeerClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer peer.Close()
//
//	pub, err := peer.GetKV(ctx, "1", filter, localHashes)
//
// Performance Considerations:
//
//   - Increasing ConnectionsPerEndpoint improves throughput for peers that
//     exchange large publications, at the cost of extra connection overhead.
//
//   - The binary serializer gives the smallest payload and fastest
//     (de)serialization of the available serializer.IRPCSerializer choices.
//
// Thread Safety:
//
//	A peerclient.Client returned by NewPeerClient is safe for concurrent use
//	by multiple goroutines; requests are serialized by the underlying
//	transport's connection pool, not by this package.
package client
