package llm

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the gRPC content-subtype this codec registers under.
// Calls opt into it explicitly via grpc.CallContentSubtype(jsonCodecName)
// rather than this codec replacing the default "proto" codec, since other
// gRPC clients in the process may still want protobuf.
const jsonCodecName = "json"

// jsonCodec implements encoding.Codec by marshaling wire messages as JSON
// instead of protobuf. The reference LLM service has no protoc-generated
// stubs in this build (no .proto sources were available to generate from),
// so the wire messages below are hand-written Go structs exchanged as JSON
// over a hand-authored grpc.ServiceDesc rather than generated code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
