// Package protocol is the admin RPC contract between the ringlink CLI and a
// running site. Messages are plain Go structs carried by a JSON codec.
package protocol

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype admin calls are sent with.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
