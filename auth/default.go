package auth

import (
	"context"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/internal/feature"
)

func newDefaultAuthenticator(cred *Cred) (Authenticator, error) {
	return &DefaultAuthenticator{
		DB:       cred.Source,
		Username: cred.Username,
		Password: cred.Password,
	}, nil
}

// DefaultAuthenticator uses SCRAM-SHA-1 or MONGODB-CR depending on the
// wire version range the server advertised during discovery.
type DefaultAuthenticator struct {
	DB       string
	Username string
	Password string
}

// Auth authenticates the connection.
func (a *DefaultAuthenticator) Auth(ctx context.Context, c conn.Dispatcher) error {
	cred := &Cred{Source: a.DB, Username: a.Username, Password: a.Password}

	var actual Authenticator
	var err error
	switch DefaultMechanism(c.Desc().WireVersion) {
	case SCRAMSHA1:
		actual, err = newScramSHA1Authenticator(cred)
	default:
		actual, err = newMongoDBCRAuthenticator(cred)
	}

	if err != nil {
		return err
	}

	return actual.Auth(ctx, c)
}

// DefaultMechanism resolves the mechanism to use against a server that
// advertised the given wire version range. It is a pure function; an
// explicitly configured mechanism bypasses it entirely.
func DefaultMechanism(wire conn.Range) string {
	if err := feature.ScramSHA1(wire); err != nil {
		return MONGODBCR
	}
	return SCRAMSHA1
}
