package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// OpType tags a websocket message. Inbound messages carry INIT, STATUS or
// CANCEL; outbound messages carry STATUS or INTERNAL_ERROR.
type OpType string

const (
	OpInit          OpType = "INIT"
	OpStatus        OpType = "STATUS"
	OpCancel        OpType = "CANCEL"
	OpInternalError OpType = "INTERNAL_ERROR"
)

// Error codes carried by INTERNAL_ERROR payloads.
const (
	ErrorCodeInternal   = 1
	ErrorCodeValidation = 2
)

// RequestData is the payload of every inbound op.
type RequestData struct {
	Identifier string `json:"identifier" validate:"required"`
	Variant    string `json:"variant" validate:"required"`
}

// InboundMessage is one client request.
type InboundMessage struct {
	Op   OpType      `json:"op" validate:"required,oneof=INIT STATUS CANCEL"`
	Data RequestData `json:"data"`
}

// OutboundMessage is one server reply or broadcast.
type OutboundMessage struct {
	Op   OpType      `json:"op"`
	Data interface{} `json:"data"`
}

// ErrorData is the payload of an INTERNAL_ERROR message.
type ErrorData struct {
	Message      string `json:"message"`
	Code         int    `json:"code"`
	Disconnected bool   `json:"disconnected"`
}

var validate = validator.New()

// DecodeInbound parses and structurally validates one client message.
func DecodeInbound(raw []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}

// NewStatusMessage wraps a snapshot for the wire.
func NewStatusMessage(snapshot *StatusSnapshot) OutboundMessage {
	return OutboundMessage{Op: OpStatus, Data: snapshot}
}

// NewErrorMessage builds an INTERNAL_ERROR reply.
func NewErrorMessage(message string, code int, disconnected bool) OutboundMessage {
	return OutboundMessage{
		Op:   OpInternalError,
		Data: ErrorData{Message: message, Code: code, Disconnected: disconnected},
	}
}
