// Package cmd implements the command-line interface for the kvstore gossip
// key-value store. It provides a hierarchical command structure for running
// a server process and for interacting with one as an operator.
//
// The package is organized into several subpackages:
//
//   - kvctl: Commands for RpcSurface operations against a running server
//     (get, set, dump, peers, add-peer, del-peer, summary)
//   - serve: Commands for starting and configuring the kvstore server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See kvstore -help for a list of all commands.
package cmd
