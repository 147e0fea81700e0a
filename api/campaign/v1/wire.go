package campaignv1

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// wireField is one decoded field. Only varint and length-delimited values are kept.
type wireField struct {
	number protowire.Number
	varint uint64
	bytes  []byte
}

func (field wireField) asInt64() int64 {
	return int64(field.varint)
}

func (field wireField) asBool() bool {
	return protowire.DecodeBool(field.varint)
}

func (field wireField) asString() string {
	return string(field.bytes)
}

// consumeFields walks data and calls visit for each known wire type. Other fields are skipped.
func consumeFields(data []byte, visit func(field wireField) error) error {
	for len(data) > 0 {
		number, wireType, length := protowire.ConsumeTag(data)
		if length < 0 {
			return protowire.ParseError(length)
		}
		data = data[length:]
		field := wireField{number: number}
		switch wireType {
		case protowire.VarintType:
			field.varint, length = protowire.ConsumeVarint(data)
		case protowire.BytesType:
			field.bytes, length = protowire.ConsumeBytes(data)
		default:
			length = protowire.ConsumeFieldValue(number, wireType, data)
			if length < 0 {
				return protowire.ParseError(length)
			}
			data = data[length:]
			continue
		}
		if length < 0 {
			return protowire.ParseError(length)
		}
		data = data[length:]
		if err := visit(field); err != nil {
			return err
		}
	}
	return nil
}

// Zero values are omitted, matching proto3 implicit presence.

func appendInt64(buf []byte, number protowire.Number, value int64) []byte {
	if value == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, number, protowire.VarintType)
	return protowire.AppendVarint(buf, uint64(value))
}

func appendBool(buf []byte, number protowire.Number, value bool) []byte {
	if !value {
		return buf
	}
	buf = protowire.AppendTag(buf, number, protowire.VarintType)
	return protowire.AppendVarint(buf, protowire.EncodeBool(value))
}

func appendString(buf []byte, number protowire.Number, value string) []byte {
	if value == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, number, protowire.BytesType)
	return protowire.AppendString(buf, value)
}

func appendMessage(buf []byte, number protowire.Number, message wireMessage) []byte {
	buf = protowire.AppendTag(buf, number, protowire.BytesType)
	return protowire.AppendBytes(buf, message.appendWire(nil))
}
