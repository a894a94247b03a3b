package msg

import "sync/atomic"

var globalRequestID int32

// CurrentRequestID gets the current request id.
func CurrentRequestID() int32 {
	return atomic.AddInt32(&globalRequestID, 0)
}

// NextRequestID gets the next request id.
func NextRequestID() int32 {
	return atomic.AddInt32(&globalRequestID, 1)
}

type opcode int32

const (
	replyOpcode      opcode = 1
	insertOpcode     opcode = 2002
	queryOpcode      opcode = 2004
	compressedOpcode opcode = 2012
)

// Message represents a MongoDB message.
type Message interface {
	msg()
}

// Request is a message sent to the server.
type Request interface {
	Message
	// RequestID gets the request id of the message.
	RequestID() int32
	// Replyable indicates whether the server sends a reply
	// for this message.
	Replyable() bool
}

// Response is a message received from the server.
type Response interface {
	Message
	// ResponseTo gets the request id the message is a response to.
	ResponseTo() int32
}

func (m *Query) msg()  {}
func (m *Insert) msg() {}
func (m *Reply) msg()  {}
