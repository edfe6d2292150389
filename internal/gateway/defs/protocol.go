package defs

import "time"

// Event names on the judge socket
const (
	// server -> worker
	EventAuthenticationFailed = "authenticationFailed"
	EventReady                = "ready"
	EventTask                 = "task"
	EventError                = "error"

	// worker -> server
	EventSystemInfo   = "systemInfo"
	EventRequestFiles = "requestFiles"
	EventConsumeTask  = "consumeTask"
	EventProgress     = "progress"

	// both directions: acknowledges or answers the frame with the same id
	EventAck = "ack"
)

// Error codes carried by EventError
const (
	CodeMalformedFrame     = 1001
	CodeUnknownEvent       = 1016
	CodeInvalidSystemInfo  = 1101
	CodeRequestFilesFailed = 1201
	CodeInvalidProgress    = 1301
)

// Configuration constants
const (
	WriteTimeout      = 10 * time.Second
	InboundBufferSize = 64
)
