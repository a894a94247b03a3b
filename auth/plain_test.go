package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	. "github.com/mongowire/mongowire/auth"
	"github.com/mongowire/mongowire/internal/conntest"
	"github.com/mongowire/mongowire/internal/msgtest"
)

func TestPlainAuthenticator_Succeeds(t *testing.T) {
	t.Parallel()

	subject := PlainAuthenticator{
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{}
	c.ResponseQ = append(c.ResponseQ, msgtest.CreateCommandReply(bson.D{
		{Name: "ok", Value: 1},
		{Name: "conversationId", Value: 1},
		{Name: "payload", Value: []byte{}},
		{Name: "done", Value: true},
	}))

	err := subject.Auth(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, c.Sent, 1)

	fields := saslFields(t, c.Sent[0])
	require.Equal(t, PLAIN, fields["mechanism"])
	require.Equal(t, []byte("\x00user\x00pencil"), fields["payload"])
}

func TestPlainAuthenticator_rejectsChallenge(t *testing.T) {
	t.Parallel()

	subject := PlainAuthenticator{
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{}
	c.ResponseQ = append(c.ResponseQ,
		msgtest.CreateCommandReply(bson.D{
			{Name: "ok", Value: 1},
			{Name: "conversationId", Value: 1},
			{Name: "payload", Value: []byte("challenge")},
			{Name: "done", Value: false},
		}),
	)

	err := subject.Auth(context.Background(), c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected server challenge")
}
