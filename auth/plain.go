package auth

import (
	"context"
	"fmt"

	"github.com/mongowire/mongowire/conn"
)

// PLAIN is the mechanism name for PLAIN.
const PLAIN = "PLAIN"

func newPlainAuthenticator(cred *Cred) (Authenticator, error) {
	return &PlainAuthenticator{
		DB:       cred.Source,
		Username: cred.Username,
		Password: cred.Password,
	}, nil
}

// PlainAuthenticator uses the PLAIN algorithm over SASL to authenticate a
// connection.
type PlainAuthenticator struct {
	DB       string
	Username string
	Password string
}

// Name returns PLAIN.
func (a *PlainAuthenticator) Name() string {
	return PLAIN
}

// Auth authenticates the connection.
func (a *PlainAuthenticator) Auth(ctx context.Context, c conn.Dispatcher) error {
	return conductSaslConversation(ctx, c, a.DB, &plainSaslClient{
		Username: a.Username,
		Password: a.Password,
	})
}

type plainSaslClient struct {
	Username string
	Password string
}

func (c *plainSaslClient) Start() (string, []byte, error) {
	b := []byte("\x00" + c.Username + "\x00" + c.Password)
	return PLAIN, b, nil
}

func (c *plainSaslClient) Next(challenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("unexpected server challenge")
}

func (c *plainSaslClient) Completed() bool {
	return true
}
