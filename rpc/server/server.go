package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/nodalmesh/kvstore/internal/logging"
	"github.com/nodalmesh/kvstore/lib/store"
	"github.com/nodalmesh/kvstore/rpc/common"
	"github.com/nodalmesh/kvstore/rpc/serializer"
	"github.com/nodalmesh/kvstore/rpc/transport"
)

var Logger = logging.Get("rpc/server")

// NewRPCServer creates a new RPC server hosting a single Store process
// with one AreaDb per entry in config.Areas.
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewStoreServerAdapter(),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	store      *store.Store
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to deserialize request: %s", err),
			}
		} else {
			respMsg = *s.adapter.Handle(&msg, s.store)
		}

		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			val, _ = s.serializer.Serialize(common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			})
		}
		return val
	})
}

// init creates the Store for the configured areas, starts its per-area
// executors and registers the transport handler.
func (s *rpcServer) init() error {
	logging.InitGlobalLevel(s.config.LogLevel)

	if len(s.config.Areas) == 0 {
		return fmt.Errorf("server config must declare at least one area")
	}

	s.store = store.New(s.config.NodeName, s.config.Areas)
	s.store.Start()

	Logger.Infof("kvstore setup completed successfully with %d area(s)", len(s.config.Areas))

	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the store and start the transport layer
func (s *rpcServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Store returns the Store the server is hosting. Nil until Serve (or
// init, in tests) has run.
func (s *rpcServer) Store() *store.Store {
	return s.store
}
