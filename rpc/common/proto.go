package common

import (
	"encoding/json"
	"fmt"

	"github.com/nodalmesh/kvstore/lib/kv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses
// of the RpcSurface (spec.md §4.8/§6.1/§6.2). Which fields are populated
// depends on MsgType, same flattened-record style the teacher used for its
// IStore/ILockManager wire protocol -- only the fields have changed to
// cover VersionedValue, Publication, Filter and PeerSpec instead of a flat
// key/value/expiry triple.
type Message struct {
	MsgType MessageType `json:"msg_type"`

	// Area is the target area argument carried by every RPC (spec.md §6.2:
	// "Every RPC is (params, area) -> result").
	Area string `json:"area,omitempty"`

	// get request
	Keys []string `json:"keys,omitempty"`

	// dump_filtered / dump_hashes request -- KeyDumpParams (spec.md §6.1),
	// flattened onto Message the way the teacher flattened Set/SetE/Expire
	// params.
	FilterKeyPrefixes        []string                      `json:"filter_key_prefixes,omitempty"`
	FilterLegacyPrefixString string                        `json:"filter_prefix,omitempty"`
	FilterOriginatorIDs      []string                      `json:"filter_originator_ids,omitempty"`
	FilterOperator           kv.FilterOperator              `json:"filter_operator,omitempty"`
	FilterDoNotPublishValue  bool                          `json:"filter_do_not_publish_value,omitempty"`
	IgnoreTTL                bool                          `json:"ignore_ttl,omitempty"`
	KeyValHashes             map[string]kv.VersionedValue `json:"key_val_hashes,omitempty"`

	// set request / Publication response -- Publication (spec.md §6.1)
	KeyVals         map[string]kv.VersionedValue `json:"key_vals,omitempty"`
	ExpiredKeys     []string                     `json:"expired_keys,omitempty"`
	NodePath        []string                     `json:"node_path,omitempty"`
	ToBeUpdatedKeys []string                     `json:"tobe_updated_keys,omitempty"`
	TimestampMs     int64                        `json:"timestamp_ms,omitempty"`
	SenderID        string                       `json:"sender_id,omitempty"`

	// get_peers / add_peers / del_peers
	PeerMap   map[string]kv.PeerSpec `json:"peer_map,omitempty"`
	PeerNames []string               `json:"peer_names,omitempty"`

	// get_area_summary
	Areas     []string      `json:"areas,omitempty"`
	Summaries []AreaSummary `json:"summaries,omitempty"`

	// Response-only / keep-alive probe fields
	Ok  bool   `json:"ok,omitempty"`
	Err string `json:"err,omitempty"` // empty if no error, otherwise the error message
}

// AreaSummary is the wire form of get_area_summary's result entries
// (spec.md §4.8: "[{area, peer_map, key_count, total_bytes}]").
type AreaSummary struct {
	Area       string                 `json:"area"`
	PeerMap    map[string]kv.PeerSpec `json:"peer_map,omitempty"`
	KeyCount   int                    `json:"key_count"`
	TotalBytes int                    `json:"total_bytes"`
}

// ToPublication reassembles the Publication-shaped fields of Message into
// a kv.Publication.
func (m *Message) ToPublication() kv.Publication {
	return kv.Publication{
		Area:            m.Area,
		KeyVals:         m.KeyVals,
		ExpiredKeys:     m.ExpiredKeys,
		NodePath:        m.NodePath,
		TimestampMs:     m.TimestampMs,
		ToBeUpdatedKeys: m.ToBeUpdatedKeys,
		SenderID:        m.SenderID,
	}
}

// ToFilter reassembles the KeyDumpParams-shaped fields of Message into a
// kv.Filter.
func (m *Message) ToFilter() kv.Filter {
	var ids map[string]struct{}
	if len(m.FilterOriginatorIDs) > 0 {
		ids = make(map[string]struct{}, len(m.FilterOriginatorIDs))
		for _, id := range m.FilterOriginatorIDs {
			ids[id] = struct{}{}
		}
	}
	return kv.Filter{
		KeyPrefixes:        m.FilterKeyPrefixes,
		LegacyPrefixString: m.FilterLegacyPrefixString,
		OriginatorIDs:      ids,
		Operator:           m.FilterOperator,
		DoNotPublishValue:  m.FilterDoNotPublishValue,
	}
}

func filterOriginatorList(f kv.Filter) []string {
	if len(f.OriginatorIDs) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.OriginatorIDs))
	for id := range f.OriginatorIDs {
		out = append(out, id)
	}
	return out
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new get(keys) request.
func NewGetRequest(area string, keys []string) *Message {
	return &Message{MsgType: MsgTGet, Area: area, Keys: keys}
}

// NewGetResponse creates a new get response carrying pub's key_vals.
func NewGetResponse(pub kv.Publication, err error) *Message {
	msg := publicationMessage(MsgTGet, pub)
	setErr(msg, err)
	return msg
}

// NewDumpFilteredRequest creates a new dump_filtered(filter, key_val_hashes?) request.
func NewDumpFilteredRequest(area string, filter kv.Filter, keyValHashes map[string]kv.VersionedValue) *Message {
	msg := filterMessage(MsgTDumpFiltered, area, filter)
	msg.KeyValHashes = keyValHashes
	return msg
}

// NewDumpFilteredResponse creates a new dump_filtered response.
func NewDumpFilteredResponse(pub kv.Publication, err error) *Message {
	msg := publicationMessage(MsgTDumpFiltered, pub)
	setErr(msg, err)
	return msg
}

// NewDumpHashesRequest creates a new dump_hashes(filter) request.
func NewDumpHashesRequest(area string, filter kv.Filter) *Message {
	return filterMessage(MsgTDumpHashes, area, filter)
}

// NewDumpHashesResponse creates a new dump_hashes response.
func NewDumpHashesResponse(pub kv.Publication, err error) *Message {
	msg := publicationMessage(MsgTDumpHashes, pub)
	setErr(msg, err)
	return msg
}

// NewSetRequest creates a new set(publication) request.
func NewSetRequest(pub kv.Publication) *Message {
	return publicationMessage(MsgTSet, pub)
}

// NewSetResponse creates a new set response.
func NewSetResponse(err error) *Message {
	msg := &Message{MsgType: MsgTSet}
	setErr(msg, err)
	return msg
}

// NewGetPeersRequest creates a new get_peers() request.
func NewGetPeersRequest(area string) *Message {
	return &Message{MsgType: MsgTGetPeers, Area: area}
}

// NewGetPeersResponse creates a new get_peers response.
func NewGetPeersResponse(peerMap map[string]kv.PeerSpec, err error) *Message {
	msg := &Message{MsgType: MsgTGetPeers, PeerMap: peerMap}
	setErr(msg, err)
	return msg
}

// NewAddPeersRequest creates a new add_peers(map) request.
func NewAddPeersRequest(area string, peerMap map[string]kv.PeerSpec) *Message {
	return &Message{MsgType: MsgTAddPeers, Area: area, PeerMap: peerMap}
}

// NewAddPeersResponse creates a new add_peers response.
func NewAddPeersResponse(err error) *Message {
	msg := &Message{MsgType: MsgTAddPeers}
	setErr(msg, err)
	return msg
}

// NewDelPeersRequest creates a new del_peers(names) request.
func NewDelPeersRequest(area string, names []string) *Message {
	return &Message{MsgType: MsgTDelPeers, Area: area, PeerNames: names}
}

// NewDelPeersResponse creates a new del_peers response.
func NewDelPeersResponse(err error) *Message {
	msg := &Message{MsgType: MsgTDelPeers}
	setErr(msg, err)
	return msg
}

// NewGetAreaSummaryRequest creates a new get_area_summary(areas) request.
func NewGetAreaSummaryRequest(areas []string) *Message {
	return &Message{MsgType: MsgTGetAreaSummary, Areas: areas}
}

// NewGetAreaSummaryResponse creates a new get_area_summary response.
func NewGetAreaSummaryResponse(summaries []AreaSummary, err error) *Message {
	msg := &Message{MsgType: MsgTGetAreaSummary, Summaries: summaries}
	setErr(msg, err)
	return msg
}

// NewStatusRequest creates a new keep-alive status probe request, used by
// the peer client's GetStatus (lib/peerclient.Client) rather than by the
// RpcSurface proper.
func NewStatusRequest() *Message {
	return &Message{MsgType: MsgTGetStatus}
}

// NewStatusResponse creates a new status probe response.
func NewStatusResponse(err error) *Message {
	msg := &Message{MsgType: MsgTGetStatus, Ok: err == nil}
	setErr(msg, err)
	return msg
}

// NewErrorResponse creates a new generic error response.
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err}
}

func setErr(msg *Message, err error) {
	if err != nil {
		msg.Err = err.Error()
	}
}

func publicationMessage(t MessageType, pub kv.Publication) *Message {
	return &Message{
		MsgType:         t,
		Area:            pub.Area,
		KeyVals:         pub.KeyVals,
		ExpiredKeys:     pub.ExpiredKeys,
		NodePath:        pub.NodePath,
		TimestampMs:     pub.TimestampMs,
		ToBeUpdatedKeys: pub.ToBeUpdatedKeys,
		SenderID:        pub.SenderID,
	}
}

func filterMessage(t MessageType, area string, filter kv.Filter) *Message {
	return &Message{
		MsgType:                  t,
		Area:                     area,
		FilterKeyPrefixes:        filter.KeyPrefixes,
		FilterLegacyPrefixString: filter.LegacyPrefixString,
		FilterOriginatorIDs:      filterOriginatorList(filter),
		FilterOperator:           filter.Operator,
		FilterDoNotPublishValue:  filter.DoNotPublishValue,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTGet:
		return "get"
	case MsgTDumpFiltered:
		return "dump_filtered"
	case MsgTDumpHashes:
		return "dump_hashes"
	case MsgTSet:
		return "set"
	case MsgTGetPeers:
		return "get_peers"
	case MsgTAddPeers:
		return "add_peers"
	case MsgTDelPeers:
		return "del_peers"
	case MsgTGetAreaSummary:
		return "get_area_summary"
	case MsgTGetStatus:
		return "get_status"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "get":
		*t = MsgTGet
	case "dump_filtered":
		*t = MsgTDumpFiltered
	case "dump_hashes":
		*t = MsgTDumpHashes
	case "set":
		*t = MsgTSet
	case "get_peers":
		*t = MsgTGetPeers
	case "add_peers":
		*t = MsgTAddPeers
	case "del_peers":
		*t = MsgTDelPeers
	case "get_area_summary":
		*t = MsgTGetAreaSummary
	case "get_status":
		*t = MsgTGetStatus
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// RpcSurface operations (spec.md §4.8)

	MsgTGet            // get(keys)
	MsgTDumpFiltered   // dump_filtered(filter, key_val_hashes?)
	MsgTDumpHashes     // dump_hashes(filter)
	MsgTSet            // set(publication)
	MsgTGetPeers       // get_peers()
	MsgTAddPeers       // add_peers(map)
	MsgTDelPeers       // del_peers(names)
	MsgTGetAreaSummary // get_area_summary(areas)

	// Peer transport keep-alive probe (lib/peerclient.Client.GetStatus)

	MsgTGetStatus
)
