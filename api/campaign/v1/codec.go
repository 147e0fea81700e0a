// Package campaignv1 defines the campaign.v1 gRPC contract declared in campaign.proto.
// Messages are encoded in protobuf wire format under the standard "proto" content-subtype.
package campaignv1

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype of the codec.
const CodecName = "proto"

// wireMessage is implemented by every message in campaign.proto.
type wireMessage interface {
	appendWire(buf []byte) []byte
	consumeWire(data []byte) error
}

type wireCodec struct{}

// Codec encodes the messages of this package and any proto.Message, so health checks share the server.
func Codec() encoding.Codec {
	return wireCodec{}
}

// ServerCodec installs Codec on a grpc.Server that registers CampaignService.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec())
}

func (wireCodec) Marshal(value any) ([]byte, error) {
	switch message := value.(type) {
	case wireMessage:
		return message.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(message)
	default:
		return nil, fmt.Errorf("campaignv1: cannot marshal %T", value)
	}
}

func (wireCodec) Unmarshal(data []byte, value any) error {
	switch message := value.(type) {
	case wireMessage:
		return message.consumeWire(data)
	case proto.Message:
		return proto.Unmarshal(data, message)
	default:
		return fmt.Errorf("campaignv1: cannot unmarshal into %T", value)
	}
}

func (wireCodec) Name() string {
	return CodecName
}
