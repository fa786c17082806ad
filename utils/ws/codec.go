package ws

import (
	"net/http"

	"github.com/cordlink/cordlink/utils/json"
	"github.com/pkg/errors"
)

// Codec holds the codec states for Websocket implementations to share with the
// manager. It is used internally in the Websocket and the Connection
// implementation.
type Codec struct {
	Unmarshalers OpUnmarshalers
	Headers      http.Header
}

// NewCodec creates a new default Codec instance.
func NewCodec(unmarshalers OpUnmarshalers) Codec {
	return Codec{
		Unmarshalers: unmarshalers,
		Headers:      http.Header{},
	}
}

type codecOp struct {
	Code     OpCode    `json:"op"`
	Data     json.Raw  `json:"d,omitempty"`
	Type     EventType `json:"t,omitempty"`
	Sequence int64     `json:"s,omitempty"`
}

// Decode decodes one complete JSON payload into an Op. Decoding never fails:
// a malformed or unknown payload becomes a BackgroundErrorEvent Op that still
// carries the payload's code, type and sequence, so the caller can keep its
// sequence number current while dropping the event.
func (c Codec) Decode(b []byte) Op {
	var op codecOp

	if err := json.Unmarshal(b, &op); err != nil {
		return newErrOp(err, "cannot decode gateway payload", Op{})
	}

	out := Op{
		Code:     op.Code,
		Type:     op.Type,
		Sequence: op.Sequence,
		Raw:      op.Data.Copy(),
	}

	data, err := c.Unmarshalers.Decode(op.Code, op.Type, out.Raw)
	if err != nil {
		return newErrOp(err, "", out)
	}

	out.Data = data
	return out
}

// Encode encodes an outbound event into an Op payload.
func (c Codec) Encode(data Event) ([]byte, error) {
	op := Op{
		Code: data.Op(),
		Data: data,
	}

	b, err := json.Marshal(op)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload")
	}

	return b, nil
}

func newErrOp(err error, wrap string, src Op) Op {
	malformed := !IsUnknownEvent(err)
	if wrap != "" {
		err = errors.Wrap(err, wrap)
	}

	ev := &BackgroundErrorEvent{
		Err:          err,
		OriginalCode: src.Code,
		OriginalType: src.Type,
		Malformed:    malformed,
	}

	return Op{
		Code:     ev.Op(),
		Type:     ev.EventType(),
		Data:     ev,
		Sequence: src.Sequence,
		Raw:      src.Raw,
	}
}
