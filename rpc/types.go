package rpc

import (
	"encoding/json"
	"fmt"
)

const jsonRPCVersion = "2.0"

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope with the result left raw.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the node's error object. Structured errors carry a name and a
// cause; older nodes only fill Message and Data.
type RPCError struct {
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorCause names the specific failure inside a structured error.
type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	detail := e.Message
	if data := e.dataString(); data != "" {
		detail += ": " + data
	}
	if e.Cause != nil && e.Cause.Name != "" {
		return fmt.Sprintf("%s (code %d, cause %s)", detail, e.Code, e.Cause.Name)
	}
	return fmt.Sprintf("%s (code %d)", detail, e.Code)
}

func (e *RPCError) dataString() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return string(e.Data)
}

// legacyQueryError is the shape of query results that report failure inside
// the result object instead of the error envelope.
type legacyQueryError struct {
	Error *string `json:"error"`
}
