package auth

import (
	"context"
	"fmt"

	"github.com/mongowire/mongowire/conn"
)

const defaultAuthDB = "admin"

// Cred is a set of credentials to authenticate with. It is immutable once
// constructed.
type Cred struct {
	Source    string
	Username  string
	Password  string
	Mechanism string
	Props     map[string]string
}

// Authenticator handles authenticating a connection. Auth is called after
// capability discovery has run, so the server description is available.
type Authenticator interface {
	// Auth authenticates the connection.
	Auth(ctx context.Context, c conn.Dispatcher) error
}

// CreateAuthenticator creates an authenticator for the given mechanism. An
// empty mechanism selects the default mechanism negotiation.
func CreateAuthenticator(mech string, cred *Cred) (Authenticator, error) {
	switch mech {
	case "":
		return newDefaultAuthenticator(cred)
	case SCRAMSHA1:
		return newScramSHA1Authenticator(cred)
	case SCRAMSHA256:
		return newScramSHA256Authenticator(cred)
	case MONGODBCR:
		return newMongoDBCRAuthenticator(cred)
	case PLAIN:
		return newPlainAuthenticator(cred)
	default:
		return nil, fmt.Errorf("unknown authentication mechanism %q", mech)
	}
}

func newError(err error, mech string) error {
	return &Error{
		message: fmt.Sprintf("unable to authenticate using mechanism \"%s\"", mech),
		inner:   err,
	}
}

// Error is an error that occurred during authentication.
type Error struct {
	message string
	inner   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.message, e.inner)
}

// Inner returns the wrapped error.
func (e *Error) Inner() error {
	return e.inner
}

// Message returns the message.
func (e *Error) Message() string {
	return e.message
}
