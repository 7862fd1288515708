// Package rpc implements the JSON-RPC 2.0 envelope used on the wire.
// It is pure encode/decode: no I/O, no state.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version field. MUST be exactly "2.0".
const Version = "2.0"

// Reserved JSON-RPC 2.0 error codes. Clients depend on these exact values.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

var (
	// ErrParse means the payload was not well-formed JSON.
	ErrParse = errors.New("parse error")
	// ErrInvalidRequest means the JSON was valid but the envelope was not.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request is a decoded JSON-RPC request.
type Request struct {
	ID     int64
	Method string
	Params []string

	// HasID reports whether an integer id could be extracted from the
	// payload, even when the envelope itself failed validation. It lets
	// the server answer an invalid request with the best-known id.
	HasID bool
}

// IDOrNull returns a pointer to the request id, or nil when no id could
// be determined (encoded as JSON null in error responses).
func (r Request) IDOrNull() *int64 {
	if !r.HasID {
		return nil
	}
	id := r.ID
	return &id
}

// wireRequest keeps every field optional so validation can tell a missing
// field apart from a zero value.
type wireRequest struct {
	JSONRPC *string         `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  []string        `json:"params"`
}

// DecodeRequest parses a wire payload into a Request. It returns ErrParse
// for malformed JSON and ErrInvalidRequest for a well-formed payload whose
// envelope is missing required fields or types them wrongly. On
// ErrInvalidRequest the returned Request still carries the id when one
// was recoverable.
func DecodeRequest(data []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Well-formed JSON, wrong shape. Salvage the id if we can.
			req := Request{}
			req.ID, req.HasID = salvageID(data)
			return req, fmt.Errorf("%w: field %q", ErrInvalidRequest, typeErr.Field)
		}
		return Request{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var req Request
	if len(w.ID) > 0 {
		if err := json.Unmarshal(w.ID, &req.ID); err == nil {
			req.HasID = true
		}
	}

	switch {
	case w.JSONRPC == nil || *w.JSONRPC != Version:
		return req, fmt.Errorf("%w: jsonrpc must be %q", ErrInvalidRequest, Version)
	case !req.HasID:
		return req, fmt.Errorf("%w: id must be an integer", ErrInvalidRequest)
	case w.Method == nil:
		return req, fmt.Errorf("%w: method is required", ErrInvalidRequest)
	}

	req.Method = *w.Method
	req.Params = w.Params
	return req, nil
}

// salvageID pulls an integer id out of a payload that failed full decoding.
func salvageID(data []byte) (int64, bool) {
	var partial struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &partial); err != nil || len(partial.ID) == 0 {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal(partial.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response covers both arms of the result/error union. Field order matches
// the wire layout clients expect.
type response struct {
	JSONRPC string  `json:"jsonrpc"`
	Result  *string `json:"result,omitempty"`
	Error   *Error  `json:"error,omitempty"`
	ID      *int64  `json:"id"`
}

// EncodeResult builds a success response. The result string is passed
// through byte-for-byte; the host's native text encoding is not
// reinterpreted.
func EncodeResult(id int64, result string) []byte {
	b, _ := json.Marshal(response{
		JSONRPC: Version,
		Result:  &result,
		ID:      &id,
	})
	return b
}

// EncodeError builds an error response. A nil id marshals as JSON null,
// used only when the request id could not be determined.
func EncodeError(id *int64, code int, message string) []byte {
	b, _ := json.Marshal(response{
		JSONRPC: Version,
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
	return b
}
