package ports

import (
	"context"
	"encoding/json"
)

// Envelope is the normalized shape of every remote call. Transport errors,
// timeouts and non-2xx responses all arrive as Success=false with Message
// set; Status is 0 when no response was received.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Status  int             `json:"status,omitempty"`
}

// RequestOptions describes a single call. Token, when set, is sent as a
// bearer credential.
type RequestOptions struct {
	Method  string
	Token   string
	Headers map[string]string
	Body    any
}

// Requester is the generic request function every API wrapper is built on.
type Requester interface {
	Request(ctx context.Context, endpoint string, opts RequestOptions) Envelope
}
