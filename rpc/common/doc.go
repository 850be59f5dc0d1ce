// Package common provides the wire protocol and configuration structures
// shared between the RPC server and client halves of the key-value store's
// peer transport.
//
// The package focuses on:
//   - Message protocol definition for the RpcSurface (get, dump_filtered,
//     dump_hashes, set, get_peers, add_peers, del_peers, get_area_summary)
//     plus a keep-alive status probe.
//   - Configuration structures for server (area.Config per hosted area) and
//     client (endpoint/timeout/retry) components.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between
//     components, with a flattened structure that adapts to different
//     operation types. Includes factory methods for creating various
//     request and response messages.
//
//   - MessageType: Enumeration defining all supported RpcSurface operations.
//
//   - ServerConfig: Configuration for server nodes, including node identity,
//     hosted areas, and RPC listener settings.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts, and retry behavior.
package common
