package cmd

import (
	"fmt"
	"os"

	"github.com/nodalmesh/kvstore/cmd/kvctl"
	"github.com/nodalmesh/kvstore/cmd/serve"
	"github.com/nodalmesh/kvstore/cmd/util"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvstore",
		Short: "gossip key-value store",
		Long: fmt.Sprintf(`kvstore (v%s)

A replicated, eventually-consistent key-value store serving as the
control-plane substrate of a link-state routing daemon, gossiping updates
between peers rather than replicating a log.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvstore v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kvctl.KVCommands)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
