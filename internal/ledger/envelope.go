package ledger

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope is the outer result of every ledger call. It is either Success or
// Failure; callers branch with Match.
type Envelope interface {
	envelope()
}

// Success carries the transport-encoded application payload.
type Success struct {
	Message string
}

// Failure carries the ledger's error code and description.
type Failure struct {
	Code        int32
	Description string
}

func (Success) envelope() {}
func (Failure) envelope() {}

// Err converts the failure into an *ApplicationError.
func (f Failure) Err() error {
	return &ApplicationError{Code: f.Code, Description: f.Description}
}

// Match dispatches on the envelope variant. Any value that is neither Success nor
// Failure is a protocol violation.
func Match[T any](env Envelope, onSuccess func(Success) (T, error), onFailure func(Failure) (T, error)) (T, error) {
	var zero T
	switch v := env.(type) {
	case Success:
		return onSuccess(v)
	case *Success:
		if v == nil {
			return zero, ErrProtocolViolation
		}
		return onSuccess(*v)
	case Failure:
		return onFailure(v)
	case *Failure:
		if v == nil {
			return zero, ErrProtocolViolation
		}
		return onFailure(*v)
	default:
		return zero, fmt.Errorf("%w: unrecognized envelope %T", ErrProtocolViolation, env)
	}
}

// Envelope wire layout (protobuf):
//
//	message Response { oneof result { Ok success = 1; Err error = 2; } }
//	message Ok       { string message = 1; }
//	message Err      { int32 code = 1; string description = 2; }
const (
	fieldSuccess     protowire.Number = 1
	fieldError       protowire.Number = 2
	fieldMessage     protowire.Number = 1
	fieldCode        protowire.Number = 1
	fieldDescription protowire.Number = 2
)

// UnwrapEnvelope decodes the base64 text returned by the ledger into an Envelope.
// Exactly one variant must be present.
func UnwrapEnvelope(raw []byte) (Envelope, error) {
	data, err := decodeBase64(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	var (
		env   Envelope
		cases int
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldSuccess && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			data = data[m:]
			success, err := parseSuccess(body)
			if err != nil {
				return nil, err
			}
			env = success
			cases++
		case num == fieldError && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			data = data[m:]
			failure, err := parseFailure(body)
			if err != nil {
				return nil, err
			}
			env = failure
			cases++
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	switch cases {
	case 0:
		return nil, fmt.Errorf("%w: envelope has neither success nor error", ErrProtocolViolation)
	case 1:
		return env, nil
	default:
		return nil, fmt.Errorf("%w: envelope has %d result variants", ErrProtocolViolation, cases)
	}
}

func parseSuccess(body []byte) (Success, error) {
	var s Success
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return s, fmt.Errorf("%w: success: %v", ErrProtocolViolation, protowire.ParseError(n))
		}
		body = body[n:]
		if num == fieldMessage && typ == protowire.BytesType {
			v, m := protowire.ConsumeString(body)
			if m < 0 {
				return s, fmt.Errorf("%w: success message: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			s.Message = v
			body = body[m:]
			continue
		}
		m := protowire.ConsumeFieldValue(num, typ, body)
		if m < 0 {
			return s, fmt.Errorf("%w: success: %v", ErrProtocolViolation, protowire.ParseError(m))
		}
		body = body[m:]
	}
	return s, nil
}

func parseFailure(body []byte) (Failure, error) {
	var f Failure
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return f, fmt.Errorf("%w: error: %v", ErrProtocolViolation, protowire.ParseError(n))
		}
		body = body[n:]
		switch {
		case num == fieldCode && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(body)
			if m < 0 {
				return f, fmt.Errorf("%w: error code: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			f.Code = int32(v)
			body = body[m:]
		case num == fieldDescription && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(body)
			if m < 0 {
				return f, fmt.Errorf("%w: error description: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			f.Description = v
			body = body[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, body)
			if m < 0 {
				return f, fmt.Errorf("%w: error: %v", ErrProtocolViolation, protowire.ParseError(m))
			}
			body = body[m:]
		}
	}
	return f, nil
}

func decodeBase64(raw []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(raw)))
	n, err := base64.StdEncoding.Decode(out, raw)
	if err != nil {
		return nil, errors.Join(errors.New("invalid base64"), err)
	}
	return out[:n], nil
}
