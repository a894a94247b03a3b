package conn

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/internal"
)

var (
	// ErrNoMessages occurs when dispatching an empty batch.
	ErrNoMessages = errors.New("no messages to dispatch")

	ErrUnknownCommandFailure   = errors.New("unknown command failure")
	ErrNoCommandResponse       = errors.New("no command response document")
	ErrMultiDocCommandResponse = errors.New("command returned multiple documents")
	ErrNoDocCommandResponse    = errors.New("command returned no documents")
)

// ConnectionError occurs when the stream to the server could not be
// established.
type ConnectionError struct {
	ConnectionID string

	message string
	inner   error
}

// Message gets the basic error message.
func (e *ConnectionError) Message() string {
	return e.message
}

// Error gets a rolled-up error message.
func (e *ConnectionError) Error() string {
	return internal.RolledUpErrorMessage(e)
}

// Inner gets the inner error if one exists.
func (e *ConnectionError) Inner() error {
	return e.inner
}

// SocketError occurs when reading or writing an established stream fails.
// The connection disconnects itself before surfacing it.
type SocketError struct {
	ConnectionID string

	message string
	inner   error
}

// Message gets the basic error message.
func (e *SocketError) Message() string {
	return e.message
}

// Error gets a rolled-up error message.
func (e *SocketError) Error() string {
	return internal.RolledUpErrorMessage(e)
}

// Inner gets the inner error if one exists.
func (e *SocketError) Inner() error {
	return e.inner
}

// MessageTooLargeError occurs when a serialized message exceeds the
// maximum message size. Nothing has been written to the stream when it is
// raised and the connection remains usable.
type MessageTooLargeError struct {
	Size    int
	MaxSize int
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("message of %d bytes exceeds maximum message size of %d bytes", e.Size, e.MaxSize)
}

// DocumentTooLargeError occurs when a command document exceeds the maximum
// document size. Nothing has been written to the stream when it is raised
// and the connection remains usable.
type DocumentTooLargeError struct {
	Size    int
	MaxSize int
}

func (e *DocumentTooLargeError) Error() string {
	return fmt.Sprintf("document of %d bytes exceeds maximum document size of %d bytes", e.Size, e.MaxSize)
}

// UnexpectedResponseError occurs when the correlation id of a reply does
// not match the request that solicited it. The stream cannot be trusted
// for further reads, so the connection disconnects itself before
// surfacing it.
type UnexpectedResponseError struct {
	ConnectionID string
	ExpectedID   int32
	ActualID     int32
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf(
		"connection(%s) received a response to %d, but expected a response to %d",
		e.ConnectionID, e.ActualID, e.ExpectedID,
	)
}

// UnauthorizedError occurs when the server rejects the configured
// credentials during the handshake. The connection disconnects itself
// before surfacing it.
type UnauthorizedError struct {
	ConnectionID string

	inner error
}

// Message gets the basic error message.
func (e *UnauthorizedError) Message() string {
	return fmt.Sprintf("connection(%s) authentication failed", e.ConnectionID)
}

// Error gets a rolled-up error message.
func (e *UnauthorizedError) Error() string {
	return internal.RolledUpErrorMessage(e)
}

// Inner gets the inner error if one exists.
func (e *UnauthorizedError) Inner() error {
	return e.inner
}

// CommandFailureError is an error with a failure response as a document.
type CommandFailureError struct {
	Msg      string
	Response bson.D
}

func (e *CommandFailureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Msg, e.Response)
}

// Message retrieves the message of the error.
func (e *CommandFailureError) Message() string {
	return e.Msg
}

// CommandResponseError is an error in the response to a command.
type CommandResponseError struct {
	Message string
}

// NewCommandResponseError creates a new CommandResponseError.
func NewCommandResponseError(msg string) *CommandResponseError {
	return &CommandResponseError{msg}
}

func (e *CommandResponseError) Error() string {
	return e.Message
}

// CommandError is an error in the execution of a command.
type CommandError struct {
	Code    int32
	Message string
	Name    string
}

func (e *CommandError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("(%v) %v", e.Name, e.Message)
	}
	return e.Message
}

// IsAuthFailure indicates if the error is the server rejecting
// credentials, however deeply it has been wrapped since.
func IsAuthFailure(err error) bool {
	e, ok := internal.UnwrapError(err).(*CommandError)
	return ok && (e.Code == 18 || e.Code == 13 || strings.Contains(e.Message, "auth fail"))
}

// isTransportError walks a wrapped error chain looking for one of the
// stream-level error kinds.
func isTransportError(err error) bool {
	for err != nil {
		switch err.(type) {
		case *ConnectionError, *SocketError, *UnexpectedResponseError:
			return true
		}

		wrapped, ok := err.(internal.WrappedError)
		if !ok {
			return false
		}
		err = wrapped.Inner()
	}
	return false
}
