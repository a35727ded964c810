package mcserverpb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the grpc content-subtype this package registers
// ("grpc+json" on the wire). Used in place of the protobuf wire codec
// since these message types are plain structs, not generated
// proto.Message implementations.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcserverpb: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("mcserverpb: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
