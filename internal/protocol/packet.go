// Package protocol implements the packet registry and the typed Packet
// value: a static table keyed by (state, direction, id) that yields an
// ordered list of field codecs, plus the framing state machine described in
// spec §4.2 (length varint, id varint, fields, exact consumption).
package protocol

import (
	"errors"
	"fmt"

	"github.com/RobertLeahy/MCPP-sub000/internal/varint"
)

// State is one of the four protocol states a Client session moves through.
// Transitions are one-directional: Handshake -> {Status, Login} -> Play.
type State int

const (
	Handshake State = iota
	Status
	Login
	Play
)

func (s State) String() string {
	switch s {
	case Handshake:
		return "Handshake"
	case Status:
		return "Status"
	case Login:
		return "Login"
	case Play:
		return "Play"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Direction is which peer sent the packet.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// FieldType enumerates the wire-level codecs a PacketSpec field can use.
type FieldType int

const (
	FieldBool FieldType = iota
	FieldInt8
	FieldUint8
	FieldInt16
	FieldUint16
	FieldInt32
	FieldInt64
	FieldUint64
	FieldVarInt32
	FieldVarInt64
	FieldFloat32
	FieldFloat64
	FieldString
	// FieldRawBytes is a raw byte slice whose length is taken from a
	// previously decoded field named by FieldSpec.RawLengthFrom — used by
	// packets like chunk data where "compressed_len" precedes "compressed".
	FieldRawBytes
)

// FieldSpec describes one positional field of a PacketSpec.
type FieldSpec struct {
	Name string
	Type FieldType

	// StringMaxLen bounds FieldString's code-unit count; 0 is unbounded.
	StringMaxLen int

	// RawLengthFrom names the earlier field supplying FieldRawBytes' length.
	RawLengthFrom string
}

// PacketSpec is the static, compile-time definition of one (state,
// direction, id) tuple's ordered field list.
type PacketSpec struct {
	State     State
	Direction Direction
	ID        uint32
	Name      string
	Fields    []FieldSpec
}

type registryKey struct {
	state     State
	direction Direction
	id        uint32
}

var registry = map[registryKey]*PacketSpec{}

// register adds a PacketSpec to the static table. Called only from init()
// in registry.go; panics on duplicate registration since that is a
// programmer error in the compile-time table, never a runtime condition.
func register(spec *PacketSpec) {
	key := registryKey{spec.State, spec.Direction, spec.ID}
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("protocol: duplicate registration for %s/%d id=0x%02x", spec.State, spec.Direction, spec.ID))
	}
	registry[key] = spec
}

// Lookup returns the PacketSpec for (state, direction, id), or ErrBadPacketID
// if no such tuple is registered.
func Lookup(state State, direction Direction, id uint32) (*PacketSpec, error) {
	spec, ok := registry[registryKey{state, direction, id}]
	if !ok {
		return nil, fmt.Errorf("%w: state=%s direction=%d id=0x%02x", ErrBadPacketID, state, direction, id)
	}
	return spec, nil
}

// ErrBadPacketID means the (state, direction, id) tuple has no registered
// spec — a protocol error per spec §4.2 step 4.
var ErrBadPacketID = errors.New("protocol: unknown packet id")

// ErrBadFormat mirrors varint.ErrBadFormat for protocol-level violations
// (trailing bytes, field out of range) that are not byte-codec failures.
var ErrBadFormat = varint.ErrBadFormat

// Packet is a tagged payload: an id plus typed, positional field values.
// Values must only be read/written through the typed accessors below —
// using the wrong accessor for a field's declared type is a programmer
// error and panics, per spec §3.
type Packet struct {
	Spec   *PacketSpec
	Values []any
}

// NewPacket constructs an empty Packet for the given spec, ready to have
// its fields set in order via the Set* methods.
func NewPacket(spec *PacketSpec) *Packet {
	return &Packet{Spec: spec, Values: make([]any, len(spec.Fields))}
}

func (p *Packet) indexOf(name string) int {
	for i, f := range p.Spec.Fields {
		if f.Name == name {
			return i
		}
	}
	panic(fmt.Sprintf("protocol: packet %s has no field %q", p.Spec.Name, name))
}

func (p *Packet) get(name string, wantType FieldType) any {
	i := p.indexOf(name)
	if p.Spec.Fields[i].Type != wantType {
		panic(fmt.Sprintf("protocol: field %q of %s is not type %d", name, p.Spec.Name, wantType))
	}
	return p.Values[i]
}

func (p *Packet) set(name string, wantType FieldType, v any) {
	i := p.indexOf(name)
	if p.Spec.Fields[i].Type != wantType {
		panic(fmt.Sprintf("protocol: field %q of %s is not type %d", name, p.Spec.Name, wantType))
	}
	p.Values[i] = v
}

func (p *Packet) Bool(name string) bool         { return p.get(name, FieldBool).(bool) }
func (p *Packet) SetBool(name string, v bool)   { p.set(name, FieldBool, v) }
func (p *Packet) Int8(name string) int8         { return p.get(name, FieldInt8).(int8) }
func (p *Packet) SetInt8(name string, v int8)   { p.set(name, FieldInt8, v) }
func (p *Packet) Uint8(name string) uint8       { return p.get(name, FieldUint8).(uint8) }
func (p *Packet) SetUint8(name string, v uint8) { p.set(name, FieldUint8, v) }
func (p *Packet) Int16(name string) int16       { return p.get(name, FieldInt16).(int16) }
func (p *Packet) SetInt16(name string, v int16) { p.set(name, FieldInt16, v) }
func (p *Packet) Uint16(name string) uint16     { return p.get(name, FieldUint16).(uint16) }
func (p *Packet) SetUint16(name string, v uint16) {
	p.set(name, FieldUint16, v)
}
func (p *Packet) Int32(name string) int32       { return p.get(name, FieldInt32).(int32) }
func (p *Packet) SetInt32(name string, v int32) { p.set(name, FieldInt32, v) }
func (p *Packet) Int64(name string) int64       { return p.get(name, FieldInt64).(int64) }
func (p *Packet) SetInt64(name string, v int64) { p.set(name, FieldInt64, v) }
func (p *Packet) Uint64(name string) uint64     { return p.get(name, FieldUint64).(uint64) }
func (p *Packet) SetUint64(name string, v uint64) {
	p.set(name, FieldUint64, v)
}
func (p *Packet) VarInt32(name string) uint32 { return p.get(name, FieldVarInt32).(uint32) }
func (p *Packet) SetVarInt32(name string, v uint32) {
	p.set(name, FieldVarInt32, v)
}
func (p *Packet) VarInt64(name string) uint64 { return p.get(name, FieldVarInt64).(uint64) }
func (p *Packet) SetVarInt64(name string, v uint64) {
	p.set(name, FieldVarInt64, v)
}
func (p *Packet) Float32(name string) float32 { return p.get(name, FieldFloat32).(float32) }
func (p *Packet) SetFloat32(name string, v float32) {
	p.set(name, FieldFloat32, v)
}
func (p *Packet) Float64(name string) float64 { return p.get(name, FieldFloat64).(float64) }
func (p *Packet) SetFloat64(name string, v float64) {
	p.set(name, FieldFloat64, v)
}
func (p *Packet) String(name string) string { return p.get(name, FieldString).(string) }
func (p *Packet) SetString(name string, v string) {
	p.set(name, FieldString, v)
}
func (p *Packet) Bytes(name string) []byte { return p.get(name, FieldRawBytes).([]byte) }
func (p *Packet) SetBytes(name string, v []byte) {
	p.set(name, FieldRawBytes, v)
}
