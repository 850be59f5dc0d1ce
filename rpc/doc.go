// Package rpc provides a comprehensive framework for remote procedure calls
// between peers of the gossip key-value store. It acts as the communication layer
// that carries synchronization traffic (dump_filtered, full-sync responses,
// finalize-sync) and control-plane queries (get, set, peer management) across
// network boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol and configuration structures.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: a peerclient.Client implementation that turns an area's sync and
//     query requests into RPC calls against a remote Store.
//
//   - server: RPC server components that dispatch incoming requests to a
//     Store's RpcSurface operations.
package rpc
