package serializer

import (
	"testing"

	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {MsgType: common.MsgTSuccess},

		"SmallGet": *common.NewGetRequest("1", []string{"k"}),

		"MediumGet": *common.NewGetRequest("1", []string{"medium-length-key-for-testing"}),

		"LargeGet": *common.NewGetRequest("1", []string{
			"this-is-a-very-large-key-that-could-be-used-for-storing-data-or-as-a-document-id-in-some-cases",
		}),

		"SmallSet": *common.NewSetRequest(kv.Publication{
			Area:    "1",
			KeyVals: map[string]kv.VersionedValue{"key": {Version: 1, OriginatorID: "n", Payload: []byte("v"), TTLMs: -1}},
		}),

		"MediumSet": *common.NewSetRequest(kv.Publication{
			Area: "1",
			KeyVals: map[string]kv.VersionedValue{
				"key": {Version: 1, OriginatorID: "n", Payload: []byte("medium length value for testing serialization"), TTLMs: -1},
			},
		}),

		"LargeSet": *common.NewSetRequest(kv.Publication{
			Area:    "1",
			KeyVals: map[string]kv.VersionedValue{"key": {Version: 1, OriginatorID: "n", Payload: make([]byte, 1024), TTLMs: -1}},
		}),

		"VeryLargeSet": *common.NewSetRequest(kv.Publication{
			Area:    "1",
			KeyVals: map[string]kv.VersionedValue{"key": {Version: 1, OriginatorID: "n", Payload: make([]byte, 1024*16), TTLMs: -1}},
		}),

		"CompleteGetAreaSummary": *common.NewGetAreaSummaryResponse([]common.AreaSummary{
			{
				Area:       "1",
				KeyCount:   42,
				TotalBytes: 4096,
				PeerMap: map[string]kv.PeerSpec{
					"peerA": {PeerAddress: "10.0.0.1:1234", ControlPort: 1234, State: kv.PeerInitialized},
					"peerB": {PeerAddress: "10.0.0.2:1234", ControlPort: 1234, State: kv.PeerSyncing},
				},
			},
		}, nil),

		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
