package rpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Version is the JSON-RPC protocol version
const Version = "2.0"

// BytesTag marks a binary envelope
const BytesTag = "bytes"

// Request is a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      uint64          `json:"id"`
}

// Response is a JSON-RPC response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// Params holds named call parameters. Absent values are left out of the map
// rather than sent as null.
type Params map[string]interface{}

// Set stores v unconditionally.
func (p Params) Set(key string, v interface{}) Params {
	p[key] = v
	return p
}

// Opt stores v unless it is undefined: a nil pointer, an empty string or nil.
func (p Params) Opt(key string, v interface{}) Params {
	switch val := v.(type) {
	case nil:
		return p
	case string:
		if val == "" {
			return p
		}
	case *bool:
		if val == nil {
			return p
		}
		p[key] = *val
		return p
	case *int:
		if val == nil {
			return p
		}
		p[key] = *val
		return p
	}
	p[key] = v
	return p
}

// Blob is binary content on the wire
type Blob []byte

type blobEnvelope struct {
	Type string `json:"__type__"`
	Data string `json:"data"`
}

// MarshalJSON always emits the tagged envelope.
func (b Blob) MarshalJSON() ([]byte, error) {
	return sonic.ConfigStd.Marshal(blobEnvelope{
		Type: BytesTag,
		Data: base64.StdEncoding.EncodeToString(b),
	})
}

// UnmarshalJSON accepts the tagged envelope or a bare base64 string.
func (b *Blob) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.ConfigStd.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid base64 payload: %w", err)
		}
		*b = decoded
		return nil
	}

	var env blobEnvelope
	if err := sonic.ConfigStd.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type != BytesTag {
		return fmt.Errorf("unexpected payload type %q", env.Type)
	}
	decoded, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return fmt.Errorf("invalid base64 payload: %w", err)
	}
	*b = decoded
	return nil
}

// Marshal encodes v with the standard-compatible sonic configuration.
func Marshal(v interface{}) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

// Unmarshal decodes data into v with the standard-compatible sonic configuration.
func Unmarshal(data []byte, v interface{}) error {
	return sonic.ConfigStd.Unmarshal(data, v)
}
