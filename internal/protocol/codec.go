package protocol

import (
	"errors"
	"fmt"

	"github.com/RobertLeahy/MCPP-sub000/internal/varint"
)

// ErrPeerClosed is never produced here; kept so callers can use errors.Is
// uniformly across the codec/session boundary for §7's error kinds.
var ErrPeerClosed = errors.New("protocol: peer closed")

// Decode parses exactly one framed packet from the front of buf:
// varint(total_bytes) || varint(id) || payload. It returns the decoded
// Packet, the number of bytes consumed from buf, and an error.
//
// If the length prefix or the reserved sub-slice is incomplete,
// ErrInsufficientBytes is returned and buf must be left untouched by the
// caller — restartability (spec §4.1, invariant 3) depends on this.
func Decode(state State, direction Direction, buf []byte) (*Packet, int, error) {
	length, lenN, err := varint.Uint32(buf)
	if err != nil {
		return nil, 0, err
	}
	total := lenN + int(length)
	if len(buf) < total {
		return nil, 0, varint.ErrInsufficientBytes
	}
	body := buf[lenN:total]

	id, idN, err := varint.Uint32(body)
	if err != nil {
		// The length prefix promised `length` bytes are present, so a
		// short id here is a malformed packet, not a need-more-bytes case.
		if errors.Is(err, varint.ErrInsufficientBytes) {
			return nil, 0, fmt.Errorf("%w: packet body shorter than its id", ErrBadFormat)
		}
		return nil, 0, err
	}

	spec, err := Lookup(state, direction, id)
	if err != nil {
		return nil, 0, err
	}

	fieldBody := body[idN:]
	packet := NewPacket(spec)
	offset := 0
	for i, fs := range spec.Fields {
		v, n, err := decodeField(fieldBody[offset:], fs, packet)
		if err != nil {
			if errors.Is(err, varint.ErrInsufficientBytes) {
				return nil, 0, fmt.Errorf("%w: field %q of %s truncated within declared length", ErrBadFormat, fs.Name, spec.Name)
			}
			return nil, 0, err
		}
		packet.Values[i] = v
		offset += n
	}

	if offset != len(fieldBody) {
		return nil, 0, fmt.Errorf("%w: %s left %d trailing bytes", ErrBadFormat, spec.Name, len(fieldBody)-offset)
	}

	return packet, total, nil
}

func decodeField(b []byte, fs FieldSpec, p *Packet) (any, int, error) {
	switch fs.Type {
	case FieldBool:
		return varint.Bool(b)
	case FieldInt8:
		return varint.Int8(b)
	case FieldUint8:
		return varint.Uint8(b)
	case FieldInt16:
		return varint.Int16(b)
	case FieldUint16:
		return varint.Uint16(b)
	case FieldInt32:
		return varint.Int32Fixed(b)
	case FieldInt64:
		return varint.Int64Fixed(b)
	case FieldUint64:
		return varint.Uint64Fixed(b)
	case FieldVarInt32:
		return varint.Uint32(b)
	case FieldVarInt64:
		return varint.Uint64(b)
	case FieldFloat32:
		return varint.Float32(b)
	case FieldFloat64:
		return varint.Float64(b)
	case FieldString:
		return varint.String(b, fs.StringMaxLen)
	case FieldRawBytes:
		n, err := rawLength(p, fs)
		if err != nil {
			return nil, 0, err
		}
		if len(b) < n {
			return nil, 0, varint.ErrInsufficientBytes
		}
		out := make([]byte, n)
		copy(out, b[:n])
		return out, n, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown field type %d", ErrBadFormat, fs.Type)
	}
}

func rawLength(p *Packet, fs FieldSpec) (int, error) {
	i := p.indexOf(fs.RawLengthFrom)
	switch v := p.Values[i].(type) {
	case int32:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative raw-bytes length from %q", ErrBadFormat, fs.RawLengthFrom)
		}
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint8:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: field %q cannot supply a raw-bytes length", ErrBadFormat, fs.RawLengthFrom)
	}
}

// Encode serializes p as length(varint) || id(varint) || fields.
func Encode(p *Packet) ([]byte, error) {
	var body []byte
	body = varint.PutUint32(body, p.Spec.ID)
	for i, fs := range p.Spec.Fields {
		var err error
		body, err = encodeField(body, fs, p.Values[i])
		if err != nil {
			return nil, err
		}
	}

	out := varint.PutUint32(nil, uint32(len(body)))
	out = append(out, body...)
	return out, nil
}

func encodeField(dst []byte, fs FieldSpec, v any) ([]byte, error) {
	switch fs.Type {
	case FieldBool:
		return varint.PutBool(dst, v.(bool)), nil
	case FieldInt8:
		return varint.PutInt8(dst, v.(int8)), nil
	case FieldUint8:
		return varint.PutUint8(dst, v.(uint8)), nil
	case FieldInt16:
		return varint.PutInt16(dst, v.(int16)), nil
	case FieldUint16:
		return varint.PutUint16(dst, v.(uint16)), nil
	case FieldInt32:
		return varint.PutInt32Fixed(dst, v.(int32)), nil
	case FieldInt64:
		return varint.PutInt64Fixed(dst, v.(int64)), nil
	case FieldUint64:
		return varint.PutUint64Fixed(dst, v.(uint64)), nil
	case FieldVarInt32:
		return varint.PutUint32(dst, v.(uint32)), nil
	case FieldVarInt64:
		return varint.PutUint64(dst, v.(uint64)), nil
	case FieldFloat32:
		return varint.PutFloat32(dst, v.(float32)), nil
	case FieldFloat64:
		return varint.PutFloat64(dst, v.(float64)), nil
	case FieldString:
		return varint.PutString(dst, v.(string)), nil
	case FieldRawBytes:
		return append(dst, v.([]byte)...), nil
	default:
		return nil, fmt.Errorf("%w: unknown field type %d", ErrBadFormat, fs.Type)
	}
}
