package kvctl

import (
	"github.com/nodalmesh/kvstore/cmd/util"
	"github.com/nodalmesh/kvstore/rpc/client"
	"github.com/spf13/cobra"
)

var (
	adminClient *client.AdminClient

	// KVCommands represents the command group for RpcSurface operations
	// against a running server (spec.md §4.8).
	KVCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations against a server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(KVCommands)

	KVCommands.AddCommand(getCmd)
	KVCommands.AddCommand(setCmd)
	KVCommands.AddCommand(dumpCmd)
	KVCommands.AddCommand(peersCmd)
	KVCommands.AddCommand(addPeerCmd)
	KVCommands.AddCommand(delPeerCmd)
	KVCommands.AddCommand(summaryCmd)
}

// setupClient initializes the admin RPC client shared by every subcommand.
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	adminClient, err = client.NewAdminClient(*config, t, s)
	return err
}
