package ledger

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Message is a payload that can cross the ledger's string-argument boundary.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// Encode serializes msg and base64-encodes it for use as a transaction argument.
func Encode(msg Message) (string, error) {
	data, err := msg.Marshal()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode into the supplied message.
func Decode(transport []byte, into Message) error {
	data, err := decodeBase64(transport)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := into.Unmarshal(data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// DecodeString is Decode for a string transport value.
func DecodeString(transport string, into Message) error {
	return Decode([]byte(transport), into)
}

// Proto adapts a protobuf message to Message.
type Proto struct {
	proto.Message
}

func (p Proto) Marshal() ([]byte, error) {
	return proto.Marshal(p.Message)
}

func (p Proto) Unmarshal(data []byte) error {
	return proto.Unmarshal(data, p.Message)
}
