package auth

import (
	"context"

	"github.com/xdg/scram"
	"github.com/xdg/stringprep"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/internal/feature"
)

// SCRAMSHA1 is the mechanism name for SCRAM-SHA-1.
const SCRAMSHA1 = "SCRAM-SHA-1"

// SCRAMSHA256 is the mechanism name for SCRAM-SHA-256.
const SCRAMSHA256 = "SCRAM-SHA-256"

func newScramSHA1Authenticator(cred *Cred) (Authenticator, error) {
	return &ScramSHA1Authenticator{
		DB:       cred.Source,
		Username: cred.Username,
		Password: cred.Password,
	}, nil
}

// ScramSHA1Authenticator uses the SCRAM-SHA-1 algorithm over SASL to
// authenticate a connection.
type ScramSHA1Authenticator struct {
	DB       string
	Username string
	Password string
}

// Name returns SCRAM-SHA-1.
func (a *ScramSHA1Authenticator) Name() string {
	return SCRAMSHA1
}

// Auth authenticates the connection.
func (a *ScramSHA1Authenticator) Auth(ctx context.Context, c conn.Dispatcher) error {
	passdigest := mongoPasswordDigest(a.Username, a.Password)
	client, err := scram.SHA1.NewClient(a.Username, passdigest, "")
	if err != nil {
		return newError(err, SCRAMSHA1)
	}

	return conductSaslConversation(ctx, c, a.DB, &scramSaslClient{
		mechanism:    SCRAMSHA1,
		conversation: client.NewConversation(),
	})
}

func newScramSHA256Authenticator(cred *Cred) (Authenticator, error) {
	return &ScramSHA256Authenticator{
		DB:       cred.Source,
		Username: cred.Username,
		Password: cred.Password,
	}, nil
}

// ScramSHA256Authenticator uses the SCRAM-SHA-256 algorithm over SASL to
// authenticate a connection.
type ScramSHA256Authenticator struct {
	DB       string
	Username string
	Password string
}

// Name returns SCRAM-SHA-256.
func (a *ScramSHA256Authenticator) Name() string {
	return SCRAMSHA256
}

// Auth authenticates the connection.
func (a *ScramSHA256Authenticator) Auth(ctx context.Context, c conn.Dispatcher) error {
	if desc := c.Desc(); desc != nil {
		if err := feature.ScramSHA256(desc.WireVersion); err != nil {
			return newError(err, SCRAMSHA256)
		}
	}

	passprep, err := stringprep.SASLprep.Prepare(a.Password)
	if err != nil {
		return newError(err, SCRAMSHA256)
	}

	client, err := scram.SHA256.NewClient(a.Username, passprep, "")
	if err != nil {
		return newError(err, SCRAMSHA256)
	}

	return conductSaslConversation(ctx, c, a.DB, &scramSaslClient{
		mechanism:    SCRAMSHA256,
		conversation: client.NewConversation(),
	})
}

type scramSaslClient struct {
	mechanism    string
	conversation *scram.ClientConversation
}

func (c *scramSaslClient) Start() (string, []byte, error) {
	step, err := c.conversation.Step("")
	if err != nil {
		return c.mechanism, nil, err
	}
	return c.mechanism, []byte(step), nil
}

func (c *scramSaslClient) Next(challenge []byte) ([]byte, error) {
	step, err := c.conversation.Step(string(challenge))
	if err != nil {
		return nil, err
	}
	return []byte(step), nil
}

func (c *scramSaslClient) Completed() bool {
	return c.conversation.Valid()
}
