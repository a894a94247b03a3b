package auth

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"

	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/msg"
)

// MONGODBCR is the mechanism name for MONGODB-CR.
const MONGODBCR = "MONGODB-CR"

func newMongoDBCRAuthenticator(cred *Cred) (Authenticator, error) {
	return &MongoDBCRAuthenticator{
		DB:       cred.Source,
		Username: cred.Username,
		Password: cred.Password,
	}, nil
}

// MongoDBCRAuthenticator uses the MONGODB-CR algorithm to authenticate a
// connection.
type MongoDBCRAuthenticator struct {
	DB       string
	Username string
	Password string
}

// Name returns MONGODB-CR.
func (a *MongoDBCRAuthenticator) Name() string {
	return MONGODBCR
}

// Auth authenticates the connection.
func (a *MongoDBCRAuthenticator) Auth(ctx context.Context, c conn.Dispatcher) error {
	db := a.DB
	if db == "" {
		db = defaultAuthDB
	}

	getNonceRequest := msg.NewCommand(
		msg.NextRequestID(),
		db,
		true,
		bson.D{{Name: "getnonce", Value: 1}},
	)
	var getNonceResult struct {
		Nonce string `bson:"nonce"`
	}

	err := conn.ExecuteCommand(ctx, c, getNonceRequest, &getNonceResult)
	if err != nil {
		return newError(err, a.Name())
	}

	authRequest := msg.NewCommand(
		msg.NextRequestID(),
		db,
		true,
		bson.D{
			{Name: "authenticate", Value: 1},
			{Name: "user", Value: a.Username},
			{Name: "nonce", Value: getNonceResult.Nonce},
			{Name: "key", Value: a.createKey(getNonceResult.Nonce)},
		},
	)
	err = conn.ExecuteCommand(ctx, c, authRequest, &bson.D{})
	if err != nil {
		return newError(err, a.Name())
	}

	return nil
}

func (a *MongoDBCRAuthenticator) createKey(nonce string) string {
	h := md5.New()

	io.WriteString(h, nonce)
	io.WriteString(h, a.Username)
	io.WriteString(h, mongoPasswordDigest(a.Username, a.Password))
	return fmt.Sprintf("%x", h.Sum(nil))
}
