package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/nodalmesh/kvstore/lib/kv"
	"github.com/nodalmesh/kvstore/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency.
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary
// format: a bitmask of which Message fields are present, followed by each
// present field length-prefixed in declaration order. VersionedValue and
// PeerSpec use the tag numbers of spec.md §6.1 internally so the per-field
// layout stays stable even though the top-level Message itself is a
// generalization of the teacher's flat request/response record.
type binarySerializerImpl struct{}

// Bit flags, one per optional Message field.
const (
	flagArea uint32 = 1 << iota
	flagKeys
	flagFilterKeyPrefixes
	flagFilterLegacyPrefixString
	flagFilterOriginatorIDs
	flagFilterOperator
	flagFilterDoNotPublishValue
	flagIgnoreTTL
	flagKeyValHashes
	flagKeyVals
	flagExpiredKeys
	flagNodePath
	flagToBeUpdatedKeys
	flagTimestampMs
	flagSenderID
	flagPeerMap
	flagPeerNames
	flagAreas
	flagSummaries
	flagOk
	flagErr
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := newWriter()

	w.writeByte(byte(msg.MsgType))

	var flags uint32
	if msg.Area != "" {
		flags |= flagArea
	}
	if len(msg.Keys) > 0 {
		flags |= flagKeys
	}
	if len(msg.FilterKeyPrefixes) > 0 {
		flags |= flagFilterKeyPrefixes
	}
	if msg.FilterLegacyPrefixString != "" {
		flags |= flagFilterLegacyPrefixString
	}
	if len(msg.FilterOriginatorIDs) > 0 {
		flags |= flagFilterOriginatorIDs
	}
	if msg.FilterOperator != 0 {
		flags |= flagFilterOperator
	}
	if msg.FilterDoNotPublishValue {
		flags |= flagFilterDoNotPublishValue
	}
	if msg.IgnoreTTL {
		flags |= flagIgnoreTTL
	}
	if len(msg.KeyValHashes) > 0 {
		flags |= flagKeyValHashes
	}
	if len(msg.KeyVals) > 0 {
		flags |= flagKeyVals
	}
	if len(msg.ExpiredKeys) > 0 {
		flags |= flagExpiredKeys
	}
	if len(msg.NodePath) > 0 {
		flags |= flagNodePath
	}
	if len(msg.ToBeUpdatedKeys) > 0 {
		flags |= flagToBeUpdatedKeys
	}
	if msg.TimestampMs != 0 {
		flags |= flagTimestampMs
	}
	if msg.SenderID != "" {
		flags |= flagSenderID
	}
	if len(msg.PeerMap) > 0 {
		flags |= flagPeerMap
	}
	if len(msg.PeerNames) > 0 {
		flags |= flagPeerNames
	}
	if len(msg.Areas) > 0 {
		flags |= flagAreas
	}
	if len(msg.Summaries) > 0 {
		flags |= flagSummaries
	}
	if msg.Ok {
		flags |= flagOk
	}
	if msg.Err != "" {
		flags |= flagErr
	}
	w.writeUint32(flags)

	if flags&flagArea != 0 {
		w.writeString(msg.Area)
	}
	if flags&flagKeys != 0 {
		w.writeStringSlice(msg.Keys)
	}
	if flags&flagFilterKeyPrefixes != 0 {
		w.writeStringSlice(msg.FilterKeyPrefixes)
	}
	if flags&flagFilterLegacyPrefixString != 0 {
		w.writeString(msg.FilterLegacyPrefixString)
	}
	if flags&flagFilterOriginatorIDs != 0 {
		w.writeStringSlice(msg.FilterOriginatorIDs)
	}
	if flags&flagFilterOperator != 0 {
		w.writeByte(byte(msg.FilterOperator))
	}
	if flags&flagKeyValHashes != 0 {
		w.writeVersionedValueMap(msg.KeyValHashes)
	}
	if flags&flagKeyVals != 0 {
		w.writeVersionedValueMap(msg.KeyVals)
	}
	if flags&flagExpiredKeys != 0 {
		w.writeStringSlice(msg.ExpiredKeys)
	}
	if flags&flagNodePath != 0 {
		w.writeStringSlice(msg.NodePath)
	}
	if flags&flagToBeUpdatedKeys != 0 {
		w.writeStringSlice(msg.ToBeUpdatedKeys)
	}
	if flags&flagTimestampMs != 0 {
		w.writeInt64(msg.TimestampMs)
	}
	if flags&flagSenderID != 0 {
		w.writeString(msg.SenderID)
	}
	if flags&flagPeerMap != 0 {
		w.writePeerSpecMap(msg.PeerMap)
	}
	if flags&flagPeerNames != 0 {
		w.writeStringSlice(msg.PeerNames)
	}
	if flags&flagAreas != 0 {
		w.writeStringSlice(msg.Areas)
	}
	if flags&flagSummaries != 0 {
		w.writeAreaSummarySlice(msg.Summaries)
	}
	if flags&flagErr != 0 {
		w.writeString(msg.Err)
	}

	return w.bytes(), nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	r := newReader(data)

	msgType, err := r.readByte()
	if err != nil {
		return fmt.Errorf("read msg_type: %w", err)
	}
	msg.MsgType = common.MessageType(msgType)

	flags, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}

	if flags&flagArea != 0 {
		if msg.Area, err = r.readString(); err != nil {
			return err
		}
	}
	if flags&flagKeys != 0 {
		if msg.Keys, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagFilterKeyPrefixes != 0 {
		if msg.FilterKeyPrefixes, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagFilterLegacyPrefixString != 0 {
		if msg.FilterLegacyPrefixString, err = r.readString(); err != nil {
			return err
		}
	}
	if flags&flagFilterOriginatorIDs != 0 {
		if msg.FilterOriginatorIDs, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagFilterOperator != 0 {
		op, err := r.readByte()
		if err != nil {
			return err
		}
		msg.FilterOperator = kv.FilterOperator(op)
	}
	msg.FilterDoNotPublishValue = flags&flagFilterDoNotPublishValue != 0
	msg.IgnoreTTL = flags&flagIgnoreTTL != 0
	if flags&flagKeyValHashes != 0 {
		if msg.KeyValHashes, err = r.readVersionedValueMap(); err != nil {
			return err
		}
	}
	if flags&flagKeyVals != 0 {
		if msg.KeyVals, err = r.readVersionedValueMap(); err != nil {
			return err
		}
	}
	if flags&flagExpiredKeys != 0 {
		if msg.ExpiredKeys, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagNodePath != 0 {
		if msg.NodePath, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagToBeUpdatedKeys != 0 {
		if msg.ToBeUpdatedKeys, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagTimestampMs != 0 {
		if msg.TimestampMs, err = r.readInt64(); err != nil {
			return err
		}
	}
	if flags&flagSenderID != 0 {
		if msg.SenderID, err = r.readString(); err != nil {
			return err
		}
	}
	if flags&flagPeerMap != 0 {
		if msg.PeerMap, err = r.readPeerSpecMap(); err != nil {
			return err
		}
	}
	if flags&flagPeerNames != 0 {
		if msg.PeerNames, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagAreas != 0 {
		if msg.Areas, err = r.readStringSlice(); err != nil {
			return err
		}
	}
	if flags&flagSummaries != 0 {
		if msg.Summaries, err = r.readAreaSummarySlice(); err != nil {
			return err
		}
	}
	msg.Ok = flags&flagOk != 0
	if flags&flagErr != 0 {
		if msg.Err, err = r.readString(); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Low-level writer/reader primitives
// --------------------------------------------------------------------------

type binWriter struct {
	buf []byte
}

func newWriter() *binWriter { return &binWriter{buf: make([]byte, 0, 128)} }

func (w *binWriter) bytes() []byte { return w.buf }

func (w *binWriter) writeByte(b byte) { w.buf = append(w.buf, b) }

func (w *binWriter) writeBool(v bool) {
	if v {
		w.writeByte(1)
	} else {
		w.writeByte(0)
	}
}

func (w *binWriter) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *binWriter) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *binWriter) writeBytes(data []byte) {
	w.writeUint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
}

func (w *binWriter) writeString(s string) { w.writeBytes([]byte(s)) }

func (w *binWriter) writeStringSlice(ss []string) {
	w.writeUint32(uint32(len(ss)))
	for _, s := range ss {
		w.writeString(s)
	}
}

// writeVersionedValue encodes a kv.VersionedValue using the tag layout of
// spec.md §6.1: tag-1 version, tag-2 payload, tag-3 originator_id,
// tag-4 ttl_ms, tag-5 ttl_version, tag-6 content_hash.
func (w *binWriter) writeVersionedValue(v kv.VersionedValue) {
	w.writeInt64(v.Version) // tag-1
	hasPayload := v.Payload != nil
	w.writeBool(hasPayload) // tag-2 presence
	if hasPayload {
		w.writeBytes(v.Payload)
	}
	w.writeString(v.OriginatorID) // tag-3
	w.writeInt64(v.TTLMs)         // tag-4
	w.writeInt64(v.TTLVersion)    // tag-5
	hasHash := v.ContentHash != nil
	w.writeBool(hasHash) // tag-6 presence
	if hasHash {
		w.writeUint64(*v.ContentHash)
	}
}

func (w *binWriter) writeVersionedValueMap(m map[string]kv.VersionedValue) {
	w.writeUint32(uint32(len(m)))
	for k, v := range m {
		w.writeString(k)
		w.writeVersionedValue(v)
	}
}

// writePeerSpec encodes a kv.PeerSpec: tag-1 peer_address, tag-4
// control_port, tag-5 state (spec.md §6.1).
func (w *binWriter) writePeerSpec(p kv.PeerSpec) {
	w.writeString(p.PeerAddress) // tag-1
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(p.ControlPort)) // tag-4
	w.buf = append(w.buf, b[:]...)
	w.writeByte(byte(p.State)) // tag-5
}

func (w *binWriter) writePeerSpecMap(m map[string]kv.PeerSpec) {
	w.writeUint32(uint32(len(m)))
	for k, v := range m {
		w.writeString(k)
		w.writePeerSpec(v)
	}
}

func (w *binWriter) writeAreaSummarySlice(sums []common.AreaSummary) {
	w.writeUint32(uint32(len(sums)))
	for _, s := range sums {
		w.writeString(s.Area)
		w.writePeerSpecMap(s.PeerMap)
		w.writeUint32(uint32(s.KeyCount))
		w.writeUint32(uint32(s.TotalBytes))
	}
}

type binReader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *binReader { return &binReader{data: data} }

func (r *binReader) readByte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data reading byte")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.readByte()
	return b != 0, err
}

func (r *binReader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data reading uint32")
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *binReader) readInt64() (int64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data reading int64")
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return int64(v), nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data reading uint64")
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *binReader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.data) {
		return nil, fmt.Errorf("unexpected end of data reading %d bytes", n)
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *binReader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *binReader) readStringSlice() ([]string, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.readString(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *binReader) readVersionedValue() (kv.VersionedValue, error) {
	var v kv.VersionedValue
	version, err := r.readInt64()
	if err != nil {
		return v, err
	}
	v.Version = version

	hasPayload, err := r.readBool()
	if err != nil {
		return v, err
	}
	if hasPayload {
		if v.Payload, err = r.readBytes(); err != nil {
			return v, err
		}
	}

	if v.OriginatorID, err = r.readString(); err != nil {
		return v, err
	}
	if v.TTLMs, err = r.readInt64(); err != nil {
		return v, err
	}
	if v.TTLVersion, err = r.readInt64(); err != nil {
		return v, err
	}

	hasHash, err := r.readBool()
	if err != nil {
		return v, err
	}
	if hasHash {
		hash, err := r.readUint64()
		if err != nil {
			return v, err
		}
		v.ContentHash = &hash
	}

	return v, nil
}

func (r *binReader) readVersionedValueMap() (map[string]kv.VersionedValue, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]kv.VersionedValue, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.readString()
		if err != nil {
			return nil, err
		}
		v, err := r.readVersionedValue()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (r *binReader) readPeerSpec() (kv.PeerSpec, error) {
	var p kv.PeerSpec
	addr, err := r.readString()
	if err != nil {
		return p, err
	}
	p.PeerAddress = addr

	if r.pos+4 > len(r.data) {
		return p, fmt.Errorf("unexpected end of data reading control_port")
	}
	p.ControlPort = int32(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4

	state, err := r.readByte()
	if err != nil {
		return p, err
	}
	p.State = kv.PeerState(state)
	return p, nil
}

func (r *binReader) readPeerSpecMap() (map[string]kv.PeerSpec, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]kv.PeerSpec, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.readString()
		if err != nil {
			return nil, err
		}
		v, err := r.readPeerSpec()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (r *binReader) readAreaSummarySlice() ([]common.AreaSummary, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]common.AreaSummary, n)
	for i := range out {
		if out[i].Area, err = r.readString(); err != nil {
			return nil, err
		}
		if out[i].PeerMap, err = r.readPeerSpecMap(); err != nil {
			return nil, err
		}
		kc, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		out[i].KeyCount = int(kc)
		tb, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		out[i].TotalBytes = int(tb)
	}
	return out, nil
}
