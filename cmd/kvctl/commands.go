package kvctl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nodalmesh/kvstore/cmd/util"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/spf13/cobra"
)

var (
	originatorFlag string
	ttlMsFlag      int64
	prefixFlag     string
	hashesOnlyFlag bool

	getCmd = &cobra.Command{
		Use:   "get [keys...]",
		Short: "Reads the current value for one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := adminClient.Get(util.GetArea(), args)
			if err != nil {
				return err
			}
			printKeyVals(pub.KeyVals)
			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key, originated by this CLI invocation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			pub := kv.Publication{
				KeyVals: map[string]kv.VersionedValue{
					key: {
						Version:      time.Now().UnixMilli(),
						OriginatorID: originatorFlag,
						Payload:      []byte(value),
						TTLMs:        ttlMsFlag,
					},
				},
			}
			if err := adminClient.Set(util.GetArea(), pub); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps every key matching --prefix, or the whole area if unset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := kv.Filter{}
			if prefixFlag != "" {
				filter.KeyPrefixes = strings.Split(prefixFlag, ",")
			}
			if hashesOnlyFlag {
				pub, err := adminClient.DumpHashes(util.GetArea(), filter)
				if err != nil {
					return err
				}
				printKeyVals(pub.KeyVals)
				return nil
			}
			pub, err := adminClient.DumpFiltered(util.GetArea(), filter)
			if err != nil {
				return err
			}
			printKeyVals(pub.KeyVals)
			return nil
		},
	}

	peersCmd = &cobra.Command{
		Use:   "peers",
		Short: "Lists the peers configured for an area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := adminClient.GetPeers(util.GetArea())
			if err != nil {
				return err
			}
			for name, spec := range peers {
				fmt.Printf("%s\taddress=%s:%d\tstate=%s\n", name, spec.PeerAddress, spec.ControlPort, spec.State)
			}
			return nil
		},
	}

	addPeerCmd = &cobra.Command{
		Use:   "add-peer [name] [address] [control_port]",
		Short: "Registers a peer's PeerSpec for an area",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.ParseInt(args[2], 10, 32)
			if err != nil {
				return fmt.Errorf("control_port must be a number: %w", err)
			}
			spec := kv.PeerSpec{PeerAddress: args[1], ControlPort: int32(port)}
			if err := adminClient.AddPeers(util.GetArea(), map[string]kv.PeerSpec{args[0]: spec}); err != nil {
				return err
			}
			fmt.Println("peer added")
			return nil
		},
	}

	delPeerCmd = &cobra.Command{
		Use:   "del-peer [names...]",
		Short: "Removes one or more peers from an area",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := adminClient.DelPeers(util.GetArea(), args); err != nil {
				return err
			}
			fmt.Println("peer(s) deleted")
			return nil
		},
	}

	summaryCmd = &cobra.Command{
		Use:   "summary [areas...]",
		Short: "Prints peer counts, key counts and payload size per area; all areas if unset",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := adminClient.GetAreaSummary(args)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Printf("%s\tpeers=%d\tkeys=%d\tbytes=%d\n", s.Area, len(s.PeerMap), s.KeyCount, s.TotalBytes)
			}
			return nil
		},
	}
)

func init() {
	setCmd.Flags().StringVar(&originatorFlag, "originator", "kvctl", util.WrapString("originator_id recorded on the VersionedValue this command writes"))
	setCmd.Flags().Int64Var(&ttlMsFlag, "ttl-ms", kv.TTLInfinite, util.WrapString("TTL in milliseconds for the value set by this command; -1 means never expire"))
	dumpCmd.Flags().StringVar(&prefixFlag, "prefix", "", util.WrapString("Comma-separated list of key prefixes to restrict the dump to"))
	dumpCmd.Flags().BoolVar(&hashesOnlyFlag, "hashes-only", false, util.WrapString("Dump ContentHash-only records instead of full payloads (dump_hashes)"))
}

func printKeyVals(keyVals map[string]kv.VersionedValue) {
	if len(keyVals) == 0 {
		fmt.Println("(no keys)")
		return
	}
	for key, v := range keyVals {
		fmt.Printf("%s\tversion=%d\toriginator=%s\tvalue=%s\n", key, v.Version, v.OriginatorID, v.Payload)
	}
}
