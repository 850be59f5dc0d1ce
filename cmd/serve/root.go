package serve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cmdUtil "github.com/nodalmesh/kvstore/cmd/util"
	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/lib/area"
	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/client"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/server"
	"github.com/nodalmesh/kvstore/rpc/transport"
	"github.com/nodalmesh/kvstore/rpc/transport/http"
	"github.com/nodalmesh/kvstore/rpc/transport/tcp"
	"github.com/nodalmesh/kvstore/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logging.Get("cmd/serve")

var (
	serveCmdConfig = &common.ServerConfig{}
	peersFlag      string

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the kvstore server",
		Long:    `Start the kvstore server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVSTORE_<flag> (e.g. KVSTORE_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	key := "node-name"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("This node's originator ID, used to attribute self-originated keys and to detect flood loops"))

	key = "areas"
	ServeCmd.PersistentFlags().String(key, "1", cmdUtil.WrapString("Comma-separated list of area names to host"))

	key = "key-ttl-ms"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("TTL applied to self-originated keys in milliseconds (0 disables expiry)"))

	key = "flood-msgs-per-sec"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Rate limit for outbound flood messages per area (0 means unlimited)"))

	key = "flood-burst"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Burst size for the flood rate limiter"))

	key = "set-leaf-node"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Marks this node as a leaf node in its area configuration; the flag does not change flooding or ingress filtering"))

	key = "keep-alive-interval-ms"
	ServeCmd.PersistentFlags().Int64(key, 5000, cmdUtil.WrapString("Base interval between peer keep-alive probes in milliseconds"))

	key = "unset-throttle-ms"
	ServeCmd.PersistentFlags().Int64(key, 200, cmdUtil.WrapString("How long unset() waits before advertising a tombstone, giving a racing persist a chance to win"))

	key = "peers"
	ServeCmd.PersistentFlags().StringVar(&peersFlag, key, "", cmdUtil.WrapString("Comma-separated list of peers to dial, format name=address:control_port (e.g. node-2=10.0.0.2:8080), applied to every hosted area"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for outbound peer RPCs"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. 0.0.0.0:8080, /tmp/kvstore.sock, ...)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	nodeName := viper.GetString("node-name")
	if nodeName == "" {
		return fmt.Errorf("node-name is required")
	}

	keyTTLMs := viper.GetInt64("key-ttl-ms")
	if keyTTLMs == 0 {
		keyTTLMs = kv.TTLInfinite
	}
	floodMsgsPerSec := viper.GetFloat64("flood-msgs-per-sec")
	floodBurst := viper.GetInt("flood-burst")
	setLeafNode := viper.GetBool("set-leaf-node")
	keepAliveMs := viper.GetInt64("keep-alive-interval-ms")
	unsetThrottleMs := viper.GetInt64("unset-throttle-ms")

	var areaCfgs []area.Config
	for _, name := range strings.Split(viper.GetString("areas"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cfg := area.DefaultConfig(name, nodeName)
		cfg.KeyTTLMs = keyTTLMs
		cfg.FloodMsgsPerSec = floodMsgsPerSec
		cfg.FloodBurst = floodBurst
		cfg.SetLeafNode = setLeafNode
		cfg.KeepAliveIntervalMs = keepAliveMs
		cfg.UnsetThrottleMs = unsetThrottleMs
		areaCfgs = append(areaCfgs, cfg)
	}
	if len(areaCfgs) == 0 {
		return fmt.Errorf("at least one area must be configured")
	}

	serveCmdConfig.NodeName = nodeName
	serveCmdConfig.Areas = areaCfgs
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// peerDef is one entry of the --peers flag: name=address:control_port.
type peerDef struct {
	name        string
	peerAddress string
	controlPort int32
}

func parsePeers(raw string) ([]peerDef, error) {
	if raw == "" {
		return nil, nil
	}
	var out []peerDef
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected name=address:port)", entry)
		}
		host, portStr, err := splitHostPort(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid peer address %s: %w", parts[1], err)
		}
		port, err := strconv.ParseInt(portStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid peer control port %s: %w", portStr, err)
		}
		out = append(out, peerDef{name: parts[0], peerAddress: host, controlPort: int32(port)})
	}
	return out, nil
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("missing port")
	}
	return addr[:idx], addr[idx+1:], nil
}

// run starts the kvstore server
func run(_ *cobra.Command, _ []string) error {
	s, err := serializerFromFlag()
	if err != nil {
		return err
	}

	t, err := serverTransportFromFlag()
	if err != nil {
		return err
	}

	peers, err := parsePeers(peersFlag)
	if err != nil {
		return err
	}

	srv := server.NewRPCServer(*serveCmdConfig, t, s)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	if len(peers) > 0 {
		go dialConfiguredPeers(&srv, serveCmdConfig.Areas, peers)
	}

	return <-errCh
}

// dialConfiguredPeers waits for the Store to exist (init() runs
// synchronously at the top of Serve, so this settles almost immediately)
// and then registers a peerclient.Client for every configured peer, in
// every hosted area.
func dialConfiguredPeers(srv interface{ Store() *store.Store }, areas []area.Config, peers []peerDef) {
	var st *store.Store
	for i := 0; i < 200; i++ {
		if st = srv.Store(); st != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if st == nil {
		log.Error("dial peers: store never came up")
		return
	}

	for _, p := range peers {
		t, err := serverPeerTransport()
		if err != nil {
			log.WithError(err).WithField("peer", p.name).Error("dial peer: transport setup failed")
			continue
		}
		s, err := serializerFromFlag()
		if err != nil {
			log.WithError(err).WithField("peer", p.name).Error("dial peer: serializer setup failed")
			continue
		}
		cfg := common.ClientConfig{
			Endpoints:              []string{fmt.Sprintf("%s:%d", p.peerAddress, p.controlPort)},
			TimeoutSecond:          int(serveCmdConfig.TimeoutSecond),
			RetryCount:             3,
			ConnectionsPerEndpoint: 1,
		}
		peerClient, err := client.NewPeerClient(cfg, t, s)
		if err != nil {
			log.WithError(err).WithField("peer", p.name).Error("dial peer: connect failed")
			continue
		}
		spec := kv.PeerSpec{PeerAddress: p.peerAddress, ControlPort: p.controlPort}
		for _, areaCfg := range areas {
			if err := st.AddPeer(areaCfg.Area, p.name, spec, peerClient); err != nil {
				log.WithError(err).WithField("peer", p.name).WithField("area", areaCfg.Area).Error("dial peer: add peer failed")
			}
		}
	}
}

// serverPeerTransport creates a fresh client transport instance per peer;
// client transports pool connections internally so each peer needs its own.
func serverPeerTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

func serializerFromFlag() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

func serverTransportFromFlag() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(64 * 1024), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("kvstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

