package ledger

import (
	"encoding/base64"

	"google.golang.org/protobuf/encoding/protowire"
)

// Raw is an opaque byte payload passed through unchanged.
type Raw []byte

func (r Raw) Marshal() ([]byte, error) {
	out := make([]byte, len(r))
	copy(out, r)
	return out, nil
}

func (r *Raw) Unmarshal(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// WrapEnvelope builds the ledger's base64 response text for env.
func WrapEnvelope(env Envelope) ([]byte, error) {
	body, err := Match(env,
		func(s Success) ([]byte, error) {
			inner := protowire.AppendTag(nil, fieldMessage, protowire.BytesType)
			inner = protowire.AppendString(inner, s.Message)
			out := protowire.AppendTag(nil, fieldSuccess, protowire.BytesType)
			return protowire.AppendBytes(out, inner), nil
		},
		func(f Failure) ([]byte, error) {
			var inner []byte
			inner = protowire.AppendTag(inner, fieldCode, protowire.VarintType)
			inner = protowire.AppendVarint(inner, uint64(int64(f.Code)))
			inner = protowire.AppendTag(inner, fieldDescription, protowire.BytesType)
			inner = protowire.AppendString(inner, f.Description)
			out := protowire.AppendTag(nil, fieldError, protowire.BytesType)
			return protowire.AppendBytes(out, inner), nil
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(body)))
	base64.StdEncoding.Encode(out, body)
	return out, nil
}
