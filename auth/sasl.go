package auth

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/msg"
)

type saslClient interface {
	Start() (string, []byte, error)
	Next(challenge []byte) ([]byte, error)
	Completed() bool
}

type saslClientCloser interface {
	Close()
}

func conductSaslConversation(ctx context.Context, c conn.Dispatcher, db string, client saslClient) error {
	if db == "" {
		db = defaultAuthDB
	}

	if closer, ok := client.(saslClientCloser); ok {
		defer closer.Close()
	}

	mech, payload, err := client.Start()
	if err != nil {
		return newError(err, mech)
	}

	saslStartRequest := msg.NewCommand(
		msg.NextRequestID(),
		db,
		true,
		bson.D{
			{Name: "saslStart", Value: 1},
			{Name: "mechanism", Value: mech},
			{Name: "payload", Value: payload},
		},
	)

	type saslResponse struct {
		ConversationID int    `bson:"conversationId"`
		Code           int    `bson:"code"`
		Done           bool   `bson:"done"`
		Payload        []byte `bson:"payload"`
	}

	var saslResp saslResponse
	err = conn.ExecuteCommand(ctx, c, saslStartRequest, &saslResp)
	if err != nil {
		return newError(err, mech)
	}

	cid := saslResp.ConversationID

	for {
		if saslResp.Code != 0 {
			return newError(errors.Errorf("server returned code %d", saslResp.Code), mech)
		}

		if saslResp.Done && client.Completed() {
			return nil
		}

		payload, err = client.Next(saslResp.Payload)
		if err != nil {
			return newError(err, mech)
		}

		if saslResp.Done && client.Completed() {
			return nil
		}

		saslContinueRequest := msg.NewCommand(
			msg.NextRequestID(),
			db,
			true,
			bson.D{
				{Name: "saslContinue", Value: 1},
				{Name: "conversationId", Value: cid},
				{Name: "payload", Value: payload},
			},
		)

		err = conn.ExecuteCommand(ctx, c, saslContinueRequest, &saslResp)
		if err != nil {
			return newError(err, mech)
		}
	}
}
